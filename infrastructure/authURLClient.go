package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AuthURLClient asks the portal backend for a pre-authenticated report URL
// that a healthcare professional can open without logging in again.
type AuthURLClient struct {
	endpoint   string
	httpClient *http.Client
}

type authURLRequest struct {
	DoctorUID  string `json:"doctorUID"`
	PatientUID string `json:"patientUID"`
}

type authURLResponse struct {
	ReportURL string `json:"reportUrl"`
}

func NewAuthURLClient(endpoint string) *AuthURLClient {
	return &AuthURLClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *AuthURLClient) BuildReportURL(ctx context.Context, professionalID string, patientID string) (string, error) {
	body, err := json.Marshal(authURLRequest{
		DoctorUID:  professionalID,
		PatientUID: patientID,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting report url: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return "", fmt.Errorf("requesting report url: status %d: %s", res.StatusCode, msg)
	}

	var parsed authURLResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding report url response: %w", err)
	}
	if parsed.ReportURL == "" {
		return "", fmt.Errorf("empty report url for professional=[%s]", professionalID)
	}
	return parsed.ReportURL, nil
}
