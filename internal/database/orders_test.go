package database

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestListByUserSortsByCreatedAtDescending(t *testing.T) {
	opts := listByUserOptions()
	if opts.Sort == nil {
		t.Fatal("expected a sort on the order listing")
	}

	sort, ok := opts.Sort.(bson.D)
	if !ok {
		t.Fatalf("expected bson.D sort document, got %T", opts.Sort)
	}
	if len(sort) != 1 {
		t.Fatalf("expected a single sort key, got %d", len(sort))
	}
	if sort[0].Key != "createdAt" {
		t.Fatalf("expected sort on createdAt, got %q", sort[0].Key)
	}
	if sort[0].Value != -1 {
		t.Fatalf("expected descending sort, got %v", sort[0].Value)
	}
}
