package main

import (
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"
	"github.com/sirupsen/logrus"

	"github.com/galerie-tech/galerie/core/csql"
	"github.com/galerie-tech/galerie/core/filestore"
	"github.com/galerie-tech/galerie/core/logger"
	"github.com/galerie-tech/galerie/core/notify"
	"github.com/galerie-tech/galerie/gallery"
)

// Service holds the configuration for this service
//
// use POSTGRES="host=localhost port=5432 user=postgres dbname=postgres sslmode=disable"
type Service struct {
	Postgres         string `env:"POSTGRES,required" description:"the connection string for the Postgres DB without password"`
	PostgresPassword string `env:"POSTGRES_PASSWORD,default=docker" description:"password for the Postgres DB"`
	Port             string `env:"PORT,default=3000" description:"the port the service listens on"`
	LogLevel         string `env:"LOG_LEVEL,default=info" description:"logrus log level"`
	SessionSecret    string `env:"SESSION_SECRET,required" description:"secret signing the session cookies"`
	KafkaBrokers     string `env:"KAFKA_BROKERS,default=" description:"comma-separated kafka brokers for order events"`
	KafkaTopic       string `env:"KAFKA_TOPIC,default=gallery.orders" description:"kafka topic for order events"`

	ImageDriver    string `env:"IMAGE_DRIVER,default=local" description:"painting image storage: local, s3 or none"`
	ImagePath      string `env:"IMAGE_PATH,default=./images" description:"directory of the local image store"`
	S3Region       string `env:"S3_REGION,default=eu-central-1"`
	S3AccessID     string `env:"S3_ACCESS_ID,default="`
	S3AccessKey    string `env:"S3_ACCESS_KEY,default="`
	S3Bucket       string `env:"S3_BUCKET,default="`
	S3KeyPrefix    string `env:"S3_KEY_PREFIX,default=gallery/"`
	S3PublicURL    string `env:"S3_PUBLIC_URL,default="`
	AllowedOrigins string `env:"ALLOWED_ORIGINS,default=*" description:"comma-separated CORS origins"`
}

func imageDriver(service *Service, router *mux.Router) filestore.Driver {
	switch filestore.DriverType(service.ImageDriver) {
	case filestore.DriverTypeAWSS3, "s3":
		s3, err := filestore.NewS3(filestore.S3Configuration{
			AWSRegion:     service.S3Region,
			AccessID:      service.S3AccessID,
			AccessKey:     service.S3AccessKey,
			AWSBucketName: service.S3Bucket,
			KeyPrefix:     service.S3KeyPrefix,
			PublicURL:     service.S3PublicURL,
		})
		if err != nil {
			panic(err)
		}
		return s3
	case filestore.DriverTypeLocal, "local":
		local, err := filestore.NewLocalFilesystem(router, filestore.LocalConfiguration{
			BasePath: service.ImagePath,
		})
		if err != nil {
			panic(err)
		}
		return local
	default:
		return nil
	}
}

func main() {
	service := &Service{}
	if err := envdecode.Decode(service); err != nil {
		panic(err)
	}

	level, err := logrus.ParseLevel(service.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.InitLogger(level)

	db := csql.OpenWithSchema(service.Postgres, service.PostgresPassword, "gallery")
	defer db.Close()

	router := mux.NewRouter()

	var notifier notify.Notifier
	if service.KafkaBrokers != "" {
		kafka := notify.NewKafkaNotifier(strings.Split(service.KafkaBrokers, ","), service.KafkaTopic)
		defer kafka.Close()
		notifier = kafka
	}

	gallery.MustNew(&gallery.Builder{
		DB:            db,
		Router:        router,
		SessionSecret: []byte(service.SessionSecret),
		Notifier:      notifier,
		Images:        imageDriver(service, router),
	})

	handler := handlers.CORS(
		handlers.AllowedOrigins(strings.Split(service.AllowedOrigins, ",")),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE"}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Requested-Fragment"}),
		handlers.AllowCredentials(),
	)(router)
	handler = handlers.LoggingHandler(os.Stdout, handler)

	logger.Default().Infoln("listen on port :" + service.Port)
	logger.Default().Fatal(http.ListenAndServe(":"+service.Port, handler))
}
