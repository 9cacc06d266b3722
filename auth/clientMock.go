package auth

import (
	"net/http"
)

type ClientMock struct {
	Unauthorized             bool
	UserID                   string
	IsServer                 bool
	IsHealthcareProfessional bool
}

func NewMock() *ClientMock {
	return &ClientMock{
		Unauthorized:             false,
		UserID:                   "123.456.789",
		IsServer:                 false,
		IsHealthcareProfessional: true,
	}
}

func (client *ClientMock) Authenticate(req *http.Request) *TokenData {
	if client.Unauthorized {
		return nil
	}
	if req.Header.Get("authorization") == "" {
		return nil
	}
	return &TokenData{
		UserID:                   client.UserID,
		IsServer:                 client.IsServer,
		IsHealthcareProfessional: client.IsHealthcareProfessional,
	}
}
