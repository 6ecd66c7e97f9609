package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainchat "github.com/KhadijaXD/lostly/internal/domain/chat"
	domainitems "github.com/KhadijaXD/lostly/internal/domain/items"
	domainuser "github.com/KhadijaXD/lostly/internal/domain/user"
)

// ChatRepository stores each room with its messages in a single document. The unique
// (item_id, claim_id) index keeps one room per approved claim across instances.
type ChatRepository struct {
	col *mongo.Collection
}

func NewChatRepository(db *mongo.Database) *ChatRepository {
	return &ChatRepository{col: db.Collection("agg_chat")}
}

func (r *ChatRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "item_id", Value: 1}, {Key: "claim_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("item_claim_unique"),
		},
		{
			Keys: bson.D{{Key: "participants", Value: 1}, {Key: "active", Value: 1}, {Key: "last_activity", Value: -1}},
		},
	})
	return err
}

func (r *ChatRepository) ByID(ctx context.Context, id domainchat.RoomID) (*domainchat.Room, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *ChatRepository) ByItemClaim(ctx context.Context, itemID domainitems.ID, claimID domainitems.ClaimID) (*domainchat.Room, error) {
	return r.findOne(ctx, bson.M{"item_id": string(itemID), "claim_id": string(claimID)})
}

func (r *ChatRepository) Create(ctx context.Context, room *domainchat.Room) error {
	doc := newChatDocument(room)
	doc.Version = 1
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainchat.ErrDuplicateRoom
		}
		return err
	}
	room.Version = doc.Version
	return nil
}

func (r *ChatRepository) Save(ctx context.Context, room *domainchat.Room) error {
	doc := newChatDocument(room)
	filter := bson.M{"_id": doc.ID, "version": room.Version}
	doc.Version = room.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainchat.ErrConcurrentUpdate
	}
	room.Version = doc.Version
	return nil
}

func (r *ChatRepository) ListActiveByParticipant(ctx context.Context, participant domainuser.ID) ([]*domainchat.Room, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_activity", Value: -1}})
	return r.find(ctx, bson.M{"participants": string(participant), "active": true}, opts)
}

func (r *ChatRepository) ListByItem(ctx context.Context, itemID domainitems.ID) ([]*domainchat.Room, error) {
	return r.find(ctx, bson.M{"item_id": string(itemID)}, options.Find())
}

func (r *ChatRepository) findOne(ctx context.Context, filter bson.M) (*domainchat.Room, error) {
	var doc chatDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.ErrRoomNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ChatRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainchat.Room, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainchat.Room
	for cur.Next(ctx) {
		var doc chatDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type chatDocument struct {
	ID           string            `bson:"_id"`
	ItemID       string            `bson:"item_id"`
	ClaimID      string            `bson:"claim_id"`
	Participants []string          `bson:"participants"`
	Messages     []messageDocument `bson:"messages"`
	Active       bool              `bson:"active"`
	LastActivity int64             `bson:"last_activity"`
	CreatedAt    int64             `bson:"created_at"`
	UpdatedAt    int64             `bson:"updated_at"`
	Version      int64             `bson:"version"`
}

type messageDocument struct {
	ID        string `bson:"id"`
	Sender    string `bson:"sender"`
	Content   string `bson:"content"`
	Timestamp int64  `bson:"timestamp"`
	Read      bool   `bson:"read"`
}

func newChatDocument(room *domainchat.Room) chatDocument {
	doc := chatDocument{
		ID:           string(room.ID),
		ItemID:       string(room.ItemID),
		ClaimID:      string(room.ClaimID),
		Participants: []string{string(room.Participants[0]), string(room.Participants[1])},
		Messages:     make([]messageDocument, 0, len(room.Messages)),
		Active:       room.Active,
		LastActivity: timeToTimestamp(room.LastActivity),
		CreatedAt:    timeToTimestamp(room.CreatedAt),
		UpdatedAt:    timeToTimestamp(room.UpdatedAt),
		Version:      room.Version,
	}
	for _, m := range room.Messages {
		doc.Messages = append(doc.Messages, messageDocument{
			ID:        string(m.ID),
			Sender:    string(m.Sender),
			Content:   m.Content,
			Timestamp: timeToTimestamp(m.Timestamp),
			Read:      m.Read,
		})
	}
	return doc
}

func (d chatDocument) toAggregate() *domainchat.Room {
	room := &domainchat.Room{
		ID:           domainchat.RoomID(d.ID),
		ItemID:       domainitems.ID(d.ItemID),
		ClaimID:      domainitems.ClaimID(d.ClaimID),
		Active:       d.Active,
		LastActivity: timestampToTime(d.LastActivity),
		CreatedAt:    timestampToTime(d.CreatedAt),
		UpdatedAt:    timestampToTime(d.UpdatedAt),
		Version:      d.Version,
	}
	for i := 0; i < len(d.Participants) && i < 2; i++ {
		room.Participants[i] = domainuser.ID(d.Participants[i])
	}
	if len(d.Messages) > 0 {
		room.Messages = make([]domainchat.Message, 0, len(d.Messages))
		for _, m := range d.Messages {
			room.Messages = append(room.Messages, domainchat.Message{
				ID:        domainchat.MessageID(m.ID),
				Sender:    domainuser.ID(m.Sender),
				Content:   m.Content,
				Timestamp: timestampToTime(m.Timestamp),
				Read:      m.Read,
			})
		}
	}
	return room
}

var _ domainchat.Repository = (*ChatRepository)(nil)
