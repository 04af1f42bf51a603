package models

import "time"

type AcquisitionSlip struct {
	ID            string    `json:"acq_id" db:"acq_id"`
	LibrarianID   string    `json:"librarian_id" db:"librarian_id"`
	LibrarianName string    `json:"librarian_name" db:"librarian_name"`
	AccDate       time.Time `json:"acc_date" db:"acc_date"`
	TotalItems    int       `json:"total_items" db:"total_items"`
	TotalAmount   int       `json:"total_amount" db:"total_amount"`
	DetailsCount  int       `json:"details_count" db:"details_count"`
}

type AcquisitionDetail struct {
	ID          string `json:"detail_id" db:"id"`
	BookTitleID string `json:"book_title_id" db:"book_title_id"`
	BookName    string `json:"book_name" db:"book_name"`
	ISBN        string `json:"isbn" db:"isbn"`
	Author      string `json:"author" db:"author"`
	Category    string `json:"category" db:"category"`
	Quantity    int    `json:"quantity" db:"quantity"`
	Price       int    `json:"price" db:"price"`
	Subtotal    int    `json:"subtotal" db:"subtotal"`
}

type AcquisitionView struct {
	AcquisitionSlip
	Details []AcquisitionDetail `json:"details"`
}

type AcquisitionItem struct {
	BookTitleID string `json:"book_title_id" validate:"required"`
	Quantity    int    `json:"quantity" validate:"required,gt=0,lte=1000"`
	Price       *int   `json:"price" validate:"omitempty,gte=0"`
}

type AcquisitionRequest struct {
	Books []AcquisitionItem `json:"books" validate:"required,min=1,dive"`
}

type AcquisitionPage struct {
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
	Data       []AcquisitionSlip `json:"data"`
}
