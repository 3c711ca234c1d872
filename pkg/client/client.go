package client

import (
	"context"
	"staymate/pkg/logger"
	"time"
)

type Client struct {
	Mongo    *MongoClient
	Verifier *ReceiptVerifier
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) SetMongo(log *logger.Logger, mongoURI string, mongoConnTimeout time.Duration) {
	c.Mongo = NewMongoClient(log, mongoURI, mongoConnTimeout)
}

func (c *Client) SetVerifier(baseURL string, timeout time.Duration) {
	c.Verifier = NewReceiptVerifier(NewHttpClient(baseURL, timeout))
}

func (c *Client) GracefulShutdown(log *logger.Logger) {
	if c.Mongo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.Mongo.Client.Disconnect(ctx); err != nil {
		log.Error("Failed to disconnect from MongoDB", "error", err)
		return
	}
	log.Info("Disconnected from MongoDB")
}
