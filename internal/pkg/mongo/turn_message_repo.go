package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TurnMessageRepo interface {
	SaveMessages(ctx context.Context, msgs []*TurnMessage) error
	GetHistory(ctx context.Context, convID string, limit int) ([]*TurnMessage, error)
}

type turnMessageRepoImpl struct {
	col *mongo.Collection
}

func NewTurnMessageRepo(db *mongo.Database) TurnMessageRepo {
	return &turnMessageRepoImpl{
		col: db.Collection("turn_messages"),
	}
}

// SaveMessages 批量归档一回合产生的消息
func (s *turnMessageRepoImpl) SaveMessages(ctx context.Context, msgs []*TurnMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(msgs))
	for _, msg := range msgs {
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now()
		}
		docs = append(docs, msg)
	}
	_, err := s.col.InsertMany(ctx, docs)
	return err
}

// GetHistory 按时间线拉取最近 limit 条
func (s *turnMessageRepoImpl) GetHistory(ctx context.Context, convID string, limit int) ([]*TurnMessage, error) {
	if limit <= 0 {
		limit = 20
	}

	filter := bson.M{"conversation_id": convID}

	findOptions := options.Find().
		SetSort(bson.D{
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: -1},
		}).
		SetLimit(int64(limit))

	cursor, err := s.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	messages := make([]*TurnMessage, 0)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	// 反转消息列表，保证消息从旧到新排列
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
