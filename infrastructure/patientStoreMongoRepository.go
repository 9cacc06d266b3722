package infrastructure

import (
	"context"
	"log"
	"time"

	"github.com/vizuhealth/report-whisperer/schema"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	patientsCollectionName      = "patients"
	dataCollectionName          = "patientData"
	remindersCollectionName     = "reminders"
	accessRequestCollectionName = "accessRequest"
	messagesCollectionName      = "messages"

	idxPatientCategoryBucket = "PatientCategoryBucket"
	idxPatientCategoryTime   = "PatientCategoryStartTime"
)

// metadata fields used to address bucketed documents, stripped before the
// payload goes back to a client
var unwantedFields = bson.M{
	"_id":        0,
	"_patientId": 0,
	"_category":  0,
	"_bucketId":  0,
}

var reportWhispererIndexes = map[string][]mongo.IndexModel{
	dataCollectionName: {
		{
			Keys: bson.D{{Key: "_patientId", Value: 1}, {Key: "_category", Value: 1}, {Key: "_bucketId", Value: 1}},
			Options: options.Index().
				SetName(idxPatientCategoryBucket).
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "_patientId", Value: 1}, {Key: "_category", Value: 1}, {Key: "start_time", Value: 1}},
			Options: options.Index().SetName(idxPatientCategoryTime),
		},
	},
	remindersCollectionName: {
		{
			Keys: bson.D{{Key: "patientUID", Value: 1}, {Key: "healthcareProfessional_uid", Value: 1}},
			Options: options.Index().
				SetName("PatientProfessional").
				SetUnique(true),
		},
	},
	accessRequestCollectionName: {
		{
			Keys:    bson.D{{Key: "uid", Value: 1}},
			Options: options.Index().SetName("AccessRequestUID").SetUnique(true),
		},
	},
	messagesCollectionName: {
		{
			Keys:    bson.D{{Key: "_patientId", Value: 1}, {Key: "healthcareProfessional_uid", Value: 1}},
			Options: options.Index().SetName("PatientProfessionalThread"),
		},
	},
}

type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// PatientStoreMongoRepository implements usecase.PatientStore on mongo.
type PatientStoreMongoRepository struct {
	client   *mongo.Client
	database string
	timeout  time.Duration
	logger   *log.Logger
}

// storedMessage captures the generated _id alongside the message payload.
type storedMessage struct {
	ID             primitive.ObjectID `bson:"_id"`
	schema.Message `bson:",inline"`
}

// NewPatientStoreMongoRepository creates the repository. Call Start to
// connect and ensure indexes.
func NewPatientStoreMongoRepository(config *MongoConfig, logger *log.Logger) (*PatientStoreMongoRepository, error) {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	client, err := mongo.NewClient(options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, err
	}
	return &PatientStoreMongoRepository{
		client:   client,
		database: config.Database,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Start connects to mongo and creates the indexes.
func (p *PatientStoreMongoRepository) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.client.Connect(ctx); err != nil {
		return err
	}
	for collectionName, indexes := range reportWhispererIndexes {
		if _, err := p.collection(collectionName).Indexes().CreateMany(ctx, indexes); err != nil {
			return err
		}
	}
	p.logger.Println("mongo store started")
	return nil
}

func (p *PatientStoreMongoRepository) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.client.Disconnect(ctx); err != nil {
		p.logger.Printf("mongo disconnect error: %v", err)
	}
}

func (p *PatientStoreMongoRepository) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return p.client.Ping(ctx, nil)
}

func (p *PatientStoreMongoRepository) collection(name string) *mongo.Collection {
	return p.client.Database(p.database).Collection(name)
}

func (p *PatientStoreMongoRepository) GetPatient(ctx context.Context, traceID string, patientID string) (schema.GenericDocument, error) {
	opts := options.FindOne()
	opts.SetProjection(bson.M{"_id": 0})
	opts.SetComment(traceID)

	var res bson.M
	err := p.collection(patientsCollectionName).FindOne(ctx, bson.M{"uid": patientID}, opts).Decode(&res)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return schema.GenericDocument(res), nil
}

func (p *PatientStoreMongoRepository) GetBucket(ctx context.Context, traceID string, patientID string, category string, bucketID string) (schema.GenericDocument, error) {
	opts := options.FindOne()
	opts.SetProjection(unwantedFields)
	opts.SetHint(idxPatientCategoryBucket)
	opts.SetComment(traceID)

	query := bson.M{
		"_patientId": patientID,
		"_category":  category,
		"_bucketId":  bucketID,
	}
	var res bson.M
	err := p.collection(dataCollectionName).FindOne(ctx, query, opts).Decode(&res)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return schema.GenericDocument(res), nil
}

func (p *PatientStoreMongoRepository) GetSleepBucket(ctx context.Context, traceID string, patientID string, category string, bucketID string) (*schema.SleepSummary, error) {
	opts := options.FindOne()
	opts.SetProjection(unwantedFields)
	opts.SetHint(idxPatientCategoryBucket)
	opts.SetComment(traceID)

	query := bson.M{
		"_patientId": patientID,
		"_category":  category,
		"_bucketId":  bucketID,
	}
	var res schema.SleepSummary
	err := p.collection(dataCollectionName).FindOne(ctx, query, opts).Decode(&res)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}

func (p *PatientStoreMongoRepository) GetCategory(ctx context.Context, traceID string, patientID string, category string) ([]schema.GenericDocument, error) {
	query := bson.M{
		"_patientId": patientID,
		"_category":  category,
	}
	return p.findDocuments(ctx, traceID, query)
}

// GetCategorySince bounds a category scan to documents at or after the
// cutoff. Summaries are compared on their RFC3339 start_time string,
// symptoms on their DateAndTime timestamp.
func (p *PatientStoreMongoRepository) GetCategorySince(ctx context.Context, traceID string, patientID string, category string, cutoff time.Time) ([]schema.GenericDocument, error) {
	query := bson.M{
		"_patientId": patientID,
		"_category":  category,
	}
	if category == "selfReportedSymptoms" {
		query["DateAndTime"] = bson.M{"$gte": cutoff}
	} else {
		query["start_time"] = bson.M{"$gte": cutoff.Format(time.RFC3339)}
	}
	return p.findDocuments(ctx, traceID, query)
}

func (p *PatientStoreMongoRepository) findDocuments(ctx context.Context, traceID string, query bson.M) ([]schema.GenericDocument, error) {
	opts := options.Find()
	opts.SetProjection(unwantedFields)
	opts.SetSort(bson.D{primitive.E{Key: "_bucketId", Value: 1}})
	opts.SetComment(traceID)

	cursor, err := p.collection(dataCollectionName).Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := make([]schema.GenericDocument, 0)
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, schema.GenericDocument(doc))
	}
	return docs, cursor.Err()
}

func (p *PatientStoreMongoRepository) GetReminder(ctx context.Context, patientID string, professionalID string) (*schema.Reminder, error) {
	query := bson.M{
		"patientUID":                 patientID,
		"healthcareProfessional_uid": professionalID,
	}
	var res schema.Reminder
	err := p.collection(remindersCollectionName).FindOne(ctx, query).Decode(&res)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}

func (p *PatientStoreMongoRepository) SetReminder(ctx context.Context, reminder *schema.Reminder) error {
	query := bson.M{
		"patientUID":                 reminder.PatientUID,
		"healthcareProfessional_uid": reminder.HealthcareProfessionalUID,
	}
	opts := options.Replace().SetUpsert(true)
	_, err := p.collection(remindersCollectionName).ReplaceOne(ctx, query, reminder, opts)
	return err
}

func (p *PatientStoreMongoRepository) DeleteReminder(ctx context.Context, patientID string, professionalID string) error {
	query := bson.M{
		"patientUID":                 patientID,
		"healthcareProfessional_uid": professionalID,
	}
	_, err := p.collection(remindersCollectionName).DeleteOne(ctx, query)
	return err
}

func (p *PatientStoreMongoRepository) CreateAccessRequest(ctx context.Context, request *schema.AccessRequest) error {
	_, err := p.collection(accessRequestCollectionName).InsertOne(ctx, request)
	return err
}

func (p *PatientStoreMongoRepository) GetAccessRequest(ctx context.Context, id string) (*schema.AccessRequest, error) {
	var res schema.AccessRequest
	err := p.collection(accessRequestCollectionName).FindOne(ctx, bson.M{"uid": id}).Decode(&res)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}

func (p *PatientStoreMongoRepository) SaveAccessRequest(ctx context.Context, request *schema.AccessRequest) error {
	_, err := p.collection(accessRequestCollectionName).ReplaceOne(ctx, bson.M{"uid": request.UID}, request)
	return err
}

// DeleteAccessRequest is idempotent: the scheduled expiry task may fire
// after a direct delete already happened.
func (p *PatientStoreMongoRepository) DeleteAccessRequest(ctx context.Context, id string) error {
	_, err := p.collection(accessRequestCollectionName).DeleteOne(ctx, bson.M{"uid": id})
	return err
}

func (p *PatientStoreMongoRepository) GetMessages(ctx context.Context, patientID string, professionalID string) ([]schema.Message, error) {
	query := bson.M{
		"_patientId":                 patientID,
		"healthcareProfessional_uid": professionalID,
	}
	opts := options.Find()
	opts.SetSort(bson.D{primitive.E{Key: "timestamp", Value: 1}})

	cursor, err := p.collection(messagesCollectionName).Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := make([]schema.Message, 0)
	for cursor.Next(ctx) {
		var stored storedMessage
		if err := cursor.Decode(&stored); err != nil {
			return nil, err
		}
		message := stored.Message
		message.ID = stored.ID.Hex()
		messages = append(messages, message)
	}
	return messages, cursor.Err()
}

func (p *PatientStoreMongoRepository) InsertMessage(ctx context.Context, patientID string, message *schema.Message) (string, error) {
	doc := bson.M{
		"_patientId":                  patientID,
		"message":                     message.Message,
		"timestamp":                   message.Timestamp,
		"healthcareProfessional_uid":  message.HealthcareProfessionalUID,
		"healthcareProfessional_name": message.HealthcareProfessionalName,
		"clinic_name":                 message.ClinicName,
	}
	res, err := p.collection(messagesCollectionName).InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}
	objectID, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", nil
	}
	return objectID.Hex(), nil
}
