package models

import "time"

// RareCategory titles may only be borrowed on a VIP card.
const RareCategory = "Rare"

type Publisher struct {
	ID      string  `json:"pub_id" db:"pub_id"`
	Name    string  `json:"name" db:"name"`
	Address *string `json:"address" db:"address"`
}

type Category struct {
	ID   string `json:"cat_id" db:"cat_id"`
	Name string `json:"name" db:"name"`
}

// BookTitle is a catalog entry; physical copies are BookCopy rows.
type BookTitle struct {
	ID            string    `json:"id" db:"book_title_id"`
	Name          string    `json:"name" db:"name"`
	Author        string    `json:"author" db:"author"`
	ISBN          string    `json:"isbn" db:"isbn"`
	CategoryID    *string   `json:"category_id" db:"category_id"`
	Category      string    `json:"category" db:"category"`
	PublisherID   *string   `json:"publisher_id" db:"publisher_id"`
	Publisher     string    `json:"publisher" db:"publisher"`
	TotalQuantity int       `json:"total_quantity" db:"total_quantity"`
	Available     int       `json:"available" db:"available"`
	Price         int       `json:"price" db:"price"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type BookCopy struct {
	ID            string    `json:"book_id" db:"book_id"`
	BookTitleID   string    `json:"book_title_id" db:"book_title_id"`
	Condition     string    `json:"condition" db:"book_condition"`
	BeingBorrowed bool      `json:"being_borrowed" db:"being_borrowed"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type BookTitleRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Author      string `json:"author" validate:"max=100"`
	ISBN        string `json:"isbn" validate:"required,max=20"`
	CategoryID  string `json:"category_id"`
	PublisherID string `json:"publisher_id"`
	Price       int    `json:"price" validate:"gte=0"`
}

// CatalogFilter narrows titles by exact category and publisher name.
// Keyword ranking is done in memory after the filter.
type CatalogFilter struct {
	Category  string
	Publisher string
	Page      int
	PageSize  int
}

type CatalogPage struct {
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Books    []CatalogEntry `json:"books"`
}

type CatalogEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Author    string `json:"author"`
	Publisher string `json:"publisher"`
	Category  string `json:"category"`
	Available int    `json:"available"`
	Score     int    `json:"relevance_score,omitempty"`
}
