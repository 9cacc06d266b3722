// @title Report-Whisperer API
// @version 1.0.0
// @description Report access API for VizuHealth patient data as used by the clinic portal
// @BasePath /report
// @accept json
// @produce json
// @schemes https

// @securityDefinitions.apikey Auth0
// @in header
// @name Authorization
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	muxprom "gitlab.com/msvechla/mux-prometheus/pkg/middleware"

	"github.com/vizuhealth/report-whisperer/api"
	"github.com/vizuhealth/report-whisperer/auth"
	"github.com/vizuhealth/report-whisperer/infrastructure"
	"github.com/vizuhealth/report-whisperer/usecase"
)

type (
	// ServiceConfig holds the configuration for the report-whisperer service
	ServiceConfig struct {
		Port          string `envconfig:"SERVICE_PORT" default:"9128"`
		MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
		MongoDatabase string `envconfig:"MONGO_DATABASE" default:"vizuhealth"`

		EncryptionKey string `envconfig:"ENCRYPTION_KEY" required:"true"`

		SchedulerURL       string        `envconfig:"TASK_SCHEDULER_URL" required:"true"`
		AccessRequestQueue string        `envconfig:"ACCESS_REQUEST_QUEUE" default:"access-requests"`
		RemindersQueue     string        `envconfig:"REMINDERS_QUEUE" default:"reminders"`
		DeleteCallbackURL  string        `envconfig:"DELETE_ACCESS_REQUEST_CALLBACK_URL" required:"true"`
		FireCallbackURL    string        `envconfig:"REMINDER_FIRE_CALLBACK_URL" required:"true"`
		AccessRequestTTL   time.Duration `envconfig:"ACCESS_REQUEST_TTL" default:"30m"`

		AuthURLEndpoint string `envconfig:"AUTH_URL_ENDPOINT" required:"true"`

		SendGridKey string `envconfig:"SENDGRID_API_KEY" required:"true"`
		SenderEmail string `envconfig:"REMINDER_FROM_EMAIL" required:"true"`
		SenderName  string `envconfig:"REMINDER_FROM_NAME" default:"VizuHealth"`

		ReminderUTCOffsetHours int `envconfig:"REMINDER_UTC_OFFSET_HOURS" default:"2"`

		ReportsBucket string `envconfig:"REPORTS_BUCKET" required:"true"`
		Region        string `envconfig:"AWS_REGION" default:"eu-west-1"`
		S3EndpointURL string `envconfig:"S3_ENDPOINT_URL"`

		AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
		RateLimitWindow time.Duration `envconfig:"SHARE_RATE_LIMIT_WINDOW" default:"10m"`
		RateLimitMax    int           `envconfig:"SHARE_RATE_LIMIT_MAX" default:"200"`
	}
)

func main() {
	logger := log.New(os.Stdout, api.ReportAPIPrefix, log.LstdFlags|log.Lshortfile)

	var cfg ServiceConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logger.Fatal("Problem loading config: ", err)
	}

	// AWS part configuration
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.S3EndpointURL != "" {
			logger.Println("Using custom s3 endpoint: ", cfg.S3EndpointURL)
			return aws.Endpoint{
				PartitionID:       "aws",
				URL:               cfg.S3EndpointURL,
				SigningRegion:     region,
				HostnameImmutable: true,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsconfig, err := config.LoadDefaultConfig(context.TODO(), config.WithEndpointResolverWithOptions(customResolver), config.WithRegion(cfg.Region))
	if err != nil {
		logger.Fatal(err)
	}
	s3Client := s3.NewFromConfig(awsconfig)
	uploader, err := infrastructure.NewS3Uploader(s3Client, cfg.ReportsBucket)
	if err != nil {
		logger.Fatal(err)
	}

	authClient, err := auth.NewClient()
	if err != nil {
		logger.Fatal(err)
	}

	tokenCipher, err := usecase.NewTokenCipher(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal(err)
	}

	/*
	 * Instrumentation setup
	 */
	instrumentation := muxprom.NewCustomInstrumentation(true, "vizu", "reportwhisperer", prometheus.DefBuckets, nil, prometheus.DefaultRegisterer)

	patientStore, err := infrastructure.NewPatientStoreMongoRepository(&infrastructure.MongoConfig{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDatabase,
	}, logger)
	if err != nil {
		logger.Fatal(err)
	}
	defer patientStore.Close()
	if err := patientStore.Start(); err != nil {
		logger.Fatal(err)
	}

	rtr := mux.NewRouter()
	rtr.Use(instrumentation.Middleware)
	rtr.Path("/metrics").Handler(promhttp.Handler())

	/*
	 * Report-Api setup
	 */
	scheduler := infrastructure.NewTaskSchedulerClient(cfg.SchedulerURL, logger)
	mailer := infrastructure.NewSendGridMailer(cfg.SendGridKey, cfg.SenderEmail, cfg.SenderName)
	reportURLs := infrastructure.NewAuthURLClient(cfg.AuthURLEndpoint)

	reportUseCase := usecase.NewPatientReport(logger, patientStore)
	shareUseCase := usecase.NewAccessRequests(logger, patientStore, scheduler, tokenCipher, usecase.AccessRequestConfig{
		Queue:             cfg.AccessRequestQueue,
		DeleteCallbackURL: cfg.DeleteCallbackURL,
		ExpiryDelay:       cfg.AccessRequestTTL,
	})
	reminderUseCase := usecase.NewReminders(logger, patientStore, scheduler, mailer, reportURLs, usecase.ReminderConfig{
		Queue:           cfg.RemindersQueue,
		FireCallbackURL: cfg.FireCallbackURL,
		UTCOffset:       time.Duration(cfg.ReminderUTCOffsetHours) * time.Hour,
	})
	messageUseCase := usecase.NewMessages(logger, patientStore)
	exportUseCase := usecase.NewExporter(logger, reportUseCase, uploader)

	limiter := api.NewShareRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)

	reportAPI := api.InitAPI(reportUseCase, shareUseCase, reminderUseCase, messageUseCase, exportUseCase, patientStore, authClient, limiter, logger)
	reportAPI.SetHandlers("", rtr)

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "x-trace-session", "x-share-token"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
	)(rtr)

	// ability to return compressed (gzip/deflate) responses if client browser accepts it
	// this is interesting to minimise network traffic especially for the long
	// responses the full report route can return
	gzipHandler := handlers.CompressHandler(corsHandler)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: gzipHandler,
	}

	done := make(chan bool)

	// Wait for SIGINT (Ctrl+C) or SIGTERM to stop the service
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		patientStore.Close()
		server.Close()
		done <- true
	}()

	logger.Println("Listening on", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal(err)
	}

	<-done
}
