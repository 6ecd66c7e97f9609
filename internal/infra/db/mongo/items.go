package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainitems "github.com/KhadijaXD/lostly/internal/domain/items"
	domainuser "github.com/KhadijaXD/lostly/internal/domain/user"
)

// ItemRepository stores items with their claims embedded.
type ItemRepository struct {
	col *mongo.Collection
}

func NewItemRepository(db *mongo.Database) *ItemRepository {
	return &ItemRepository{col: db.Collection("agg_item")}
}

func (r *ItemRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "posted_by", Value: 1}}},
		{Keys: bson.D{{Key: "claims.user", Value: 1}}},
	})
	return err
}

func (r *ItemRepository) ByID(ctx context.Context, id domainitems.ID) (*domainitems.Item, error) {
	var doc itemDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainitems.ErrItemNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save inserts a new item (version 0) or replaces the stored one at the expected
// version. A deleted or concurrently modified item yields ErrConcurrentUpdate.
func (r *ItemRepository) Save(ctx context.Context, item *domainitems.Item) error {
	doc := newItemDocument(item)
	doc.Version = item.Version + 1
	if item.Version == 0 {
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domainitems.ErrConcurrentUpdate
			}
			return err
		}
		item.Version = doc.Version
		return nil
	}
	filter := bson.M{"_id": doc.ID, "version": item.Version}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainitems.ErrConcurrentUpdate
	}
	item.Version = doc.Version
	return nil
}

func (r *ItemRepository) Delete(ctx context.Context, id domainitems.ID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainitems.ErrItemNotFound
	}
	return nil
}

func (r *ItemRepository) List(ctx context.Context, filter domainitems.Filter) ([]*domainitems.Item, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, itemFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainitems.Item
	for cur.Next(ctx) {
		var doc itemDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func itemFilter(f domainitems.Filter) bson.M {
	q := bson.M{}
	if f.Type != "" {
		q["type"] = string(f.Type)
	}
	if f.Category != "" {
		q["category"] = string(f.Category)
	}
	switch {
	case f.Status != "":
		q["status"] = string(f.Status)
	case !f.IncludeResolved:
		q["status"] = bson.M{"$ne": string(domainitems.StatusResolved)}
	}
	if f.PostedBy != "" {
		q["posted_by"] = string(f.PostedBy)
	}
	if f.ClaimedBy != "" {
		q["claims.user"] = string(f.ClaimedBy)
	}
	if f.HasClaims {
		q["claims.0"] = bson.M{"$exists": true}
	}
	return q
}

type itemDocument struct {
	ID          string          `bson:"_id"`
	Type        string          `bson:"type"`
	Name        string          `bson:"name"`
	Category    string          `bson:"category"`
	Description string          `bson:"description"`
	Location    string          `bson:"location"`
	Date        int64           `bson:"date"`
	Image       string          `bson:"image,omitempty"`
	Status      string          `bson:"status"`
	PostedBy    string          `bson:"posted_by"`
	ClaimedBy   string          `bson:"claimed_by,omitempty"`
	Claims      []claimDocument `bson:"claims"`
	CreatedAt   int64           `bson:"created_at"`
	UpdatedAt   int64           `bson:"updated_at"`
	Version     int64           `bson:"version"`
}

type claimDocument struct {
	ID           string                `bson:"id"`
	User         string                `bson:"user"`
	Status       string                `bson:"status"`
	Message      string                `bson:"message,omitempty"`
	FinderInfo   *finderInfoDocument   `bson:"finder_info,omitempty"`
	ClaimantInfo *claimantInfoDocument `bson:"claimant_info,omitempty"`
	CreatedAt    int64                 `bson:"created_at"`
	DecidedAt    int64                 `bson:"decided_at,omitempty"`
}

type finderInfoDocument struct {
	ContactNumber     string `bson:"contact_number,omitempty"`
	Email             string `bson:"email,omitempty"`
	LocationFound     string `bson:"location_found,omitempty"`
	DateFound         int64  `bson:"date_found,omitempty"`
	AdditionalDetails string `bson:"additional_details,omitempty"`
}

type claimantInfoDocument struct {
	ContactNumber    string `bson:"contact_number,omitempty"`
	Email            string `bson:"email,omitempty"`
	ProofDescription string `bson:"proof_description,omitempty"`
	PurchaseLocation string `bson:"purchase_location,omitempty"`
	PurchaseDate     int64  `bson:"purchase_date,omitempty"`
	UniqueFeatures   string `bson:"unique_features,omitempty"`
	AdditionalProof  string `bson:"additional_proof,omitempty"`
}

func newItemDocument(item *domainitems.Item) itemDocument {
	doc := itemDocument{
		ID:          string(item.ID),
		Type:        string(item.Type),
		Name:        item.Name,
		Category:    string(item.Category),
		Description: item.Description,
		Location:    item.Location,
		Date:        timeToTimestamp(item.Date),
		Image:       item.Image,
		Status:      string(item.Status),
		PostedBy:    string(item.PostedBy),
		ClaimedBy:   string(item.ClaimedBy),
		Claims:      make([]claimDocument, 0, len(item.Claims)),
		CreatedAt:   timeToTimestamp(item.CreatedAt),
		UpdatedAt:   timeToTimestamp(item.UpdatedAt),
		Version:     item.Version,
	}
	for _, c := range item.Claims {
		cd := claimDocument{
			ID:        string(c.ID),
			User:      string(c.User),
			Status:    string(c.Status),
			Message:   c.Message,
			CreatedAt: timeToTimestamp(c.CreatedAt),
			DecidedAt: timeToTimestamp(c.DecidedAt),
		}
		if fi := c.FinderInfo; fi != nil {
			cd.FinderInfo = &finderInfoDocument{
				ContactNumber:     fi.ContactNumber,
				Email:             fi.Email,
				LocationFound:     fi.LocationFound,
				DateFound:         timeToTimestamp(fi.DateFound),
				AdditionalDetails: fi.AdditionalDetails,
			}
		}
		if ci := c.ClaimantInfo; ci != nil {
			cd.ClaimantInfo = &claimantInfoDocument{
				ContactNumber:    ci.ContactNumber,
				Email:            ci.Email,
				ProofDescription: ci.ProofDescription,
				PurchaseLocation: ci.PurchaseLocation,
				PurchaseDate:     timeToTimestamp(ci.PurchaseDate),
				UniqueFeatures:   ci.UniqueFeatures,
				AdditionalProof:  ci.AdditionalProof,
			}
		}
		doc.Claims = append(doc.Claims, cd)
	}
	return doc
}

func (d itemDocument) toAggregate() *domainitems.Item {
	item := &domainitems.Item{
		ID:          domainitems.ID(d.ID),
		Type:        domainitems.Type(d.Type),
		Name:        d.Name,
		Category:    domainitems.Category(d.Category),
		Description: d.Description,
		Location:    d.Location,
		Date:        timestampToTime(d.Date),
		Image:       d.Image,
		Status:      domainitems.Status(d.Status),
		PostedBy:    domainuser.ID(d.PostedBy),
		ClaimedBy:   domainuser.ID(d.ClaimedBy),
		CreatedAt:   timestampToTime(d.CreatedAt),
		UpdatedAt:   timestampToTime(d.UpdatedAt),
		Version:     d.Version,
	}
	for _, cd := range d.Claims {
		c := domainitems.Claim{
			ID:        domainitems.ClaimID(cd.ID),
			User:      domainuser.ID(cd.User),
			Status:    domainitems.ClaimStatus(cd.Status),
			Message:   cd.Message,
			CreatedAt: timestampToTime(cd.CreatedAt),
			DecidedAt: timestampToTime(cd.DecidedAt),
		}
		if fi := cd.FinderInfo; fi != nil {
			c.FinderInfo = &domainitems.FinderInfo{
				ContactNumber:     fi.ContactNumber,
				Email:             fi.Email,
				LocationFound:     fi.LocationFound,
				DateFound:         timestampToTime(fi.DateFound),
				AdditionalDetails: fi.AdditionalDetails,
			}
		}
		if ci := cd.ClaimantInfo; ci != nil {
			c.ClaimantInfo = &domainitems.ClaimantInfo{
				ContactNumber:    ci.ContactNumber,
				Email:            ci.Email,
				ProofDescription: ci.ProofDescription,
				PurchaseLocation: ci.PurchaseLocation,
				PurchaseDate:     timestampToTime(ci.PurchaseDate),
				UniqueFeatures:   ci.UniqueFeatures,
				AdditionalProof:  ci.AdditionalProof,
			}
		}
		item.Claims = append(item.Claims, c)
	}
	return item
}

var _ domainitems.Repository = (*ItemRepository)(nil)
