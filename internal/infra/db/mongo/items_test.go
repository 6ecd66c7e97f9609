package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	domainitems "github.com/KhadijaXD/lostly/internal/domain/items"
)

func sampleItem(t *testing.T) *domainitems.Item {
	t.Helper()
	item, err := domainitems.NewItem(domainitems.CreateParams{
		ID:          "item-1",
		Type:        domainitems.TypeLost,
		Name:        "Blue backpack",
		Category:    domainitems.CategoryAccessories,
		Description: "Left in lecture hall B",
		Location:    "Hall B",
		Date:        time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		PostedBy:    "owner-1",
		Now:         time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}
	return item
}

func TestItemRepositorySave(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("new item is inserted at version 1", func(mt *mtest.T) {
		repo := NewItemRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		item := sampleItem(t)
		if err := repo.Save(context.Background(), item); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if item.Version != 1 {
			t.Fatalf("expected version 1, got %d", item.Version)
		}
		started := mt.GetStartedEvent()
		if started == nil || started.CommandName != "insert" {
			t.Fatalf("expected insert command, got %+v", started)
		}
	})

	mt.Run("duplicate insert maps to concurrent update", func(mt *mtest.T) {
		repo := NewItemRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"}))
		item := sampleItem(t)
		if err := repo.Save(context.Background(), item); !errors.Is(err, domainitems.ErrConcurrentUpdate) {
			t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
		}
		if item.Version != 0 {
			t.Fatalf("version must not move on conflict, got %d", item.Version)
		}
	})

	mt.Run("deleted item is not recreated", func(mt *mtest.T) {
		repo := NewItemRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		item := sampleItem(t)
		item.Version = 3
		if err := repo.Save(context.Background(), item); !errors.Is(err, domainitems.ErrConcurrentUpdate) {
			t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
		}
		started := mt.GetStartedEvent()
		if started == nil || started.CommandName != "update" {
			t.Fatalf("expected update command, got %+v", started)
		}
		upsert, ok := started.Command.Lookup("updates", "0", "upsert").BooleanOK()
		if ok && upsert {
			t.Fatal("stored items must be updated without upsert")
		}
	})

	mt.Run("save bumps the version", func(mt *mtest.T) {
		repo := NewItemRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		item := sampleItem(t)
		item.Version = 3
		if err := repo.Save(context.Background(), item); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if item.Version != 4 {
			t.Fatalf("expected version 4, got %d", item.Version)
		}
	})
}
