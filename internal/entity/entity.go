package entity

import "time"

// Entity is the minimal contract a document must satisfy to be stored
// through a repository: a globally unique, immutable identifier.
type Entity interface {
	GetID() string
}

// Versioned marks an entity whose updates are guarded by optimistic
// concurrency. A repository replaces a versioned document only when the
// stored copy carries Version-1.
type Versioned interface {
	Entity
	GetVersion() int64
}

// CatalogItem is the authoritative catalog entry, owned by the catalog
// service. Price is in minor currency units (cents).
type CatalogItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
}

func (c *CatalogItem) GetID() string { return c.ID }

// CatalogItemRef is the inventory service's read-only projection of a
// catalog item, kept eventually consistent through catalog events. It
// never carries price and is never authoritative.
type CatalogItemRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (c *CatalogItemRef) GetID() string { return c.ID }

// InventoryItem records how many units of a catalog item a user holds.
// The surrogate ID exists for storage addressing; the logical key is
// (UserID, CatalogItemID). Version guards concurrent grant merges.
type InventoryItem struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	CatalogItemID string    `json:"catalog_item_id"`
	Quantity      int64     `json:"quantity"`
	AcquiredAt    time.Time `json:"acquired_at"`
	Version       int64     `json:"version"`
}

func (i *InventoryItem) GetID() string { return i.ID }

func (i *InventoryItem) GetVersion() int64 { return i.Version }
