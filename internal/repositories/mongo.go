// internal/repositories/mongo.go
package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ps-vitor/caixa-imoveis/internal/domain"
)

type MongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoRepository(ctx context.Context, uri, dbName string) (*MongoRepository, error) {
	if uri == "" {
		return nil, fmt.Errorf("MONGO_URI não configurada")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("conectar ao MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	return &MongoRepository{
		client:     client,
		collection: client.Database(dbName).Collection("imoveis"),
	}, nil
}

func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

type mongoDocument struct {
	domain.Property `bson:",inline"`
	Estado          string    `bson:"estado"`
	Cidade          string    `bson:"cidade"`
	ColetadoEm      time.Time `bson:"coletado_em"`
}

func (r *MongoRepository) Save(ctx context.Context, result *domain.ResultSet) (int, error) {
	if result == nil || len(result.Properties) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, 0, len(result.Properties))
	for _, p := range result.Properties {
		docs = append(docs, mongoDocument{
			Property:   p,
			Estado:     result.Search.Estado,
			Cidade:     result.Search.Cidade,
			ColetadoEm: result.Timestamp,
		})
	}

	res, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("inserir documentos: %w", err)
	}
	return len(res.InsertedIDs), nil
}

func (r *MongoRepository) FindAll(ctx context.Context) ([]domain.Property, error) {
	cursor, err := r.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("buscar documentos: %w", err)
	}
	defer cursor.Close(ctx)

	var properties []domain.Property
	if err := cursor.All(ctx, &properties); err != nil {
		return nil, fmt.Errorf("decodificar documentos: %w", err)
	}
	return properties, nil
}
