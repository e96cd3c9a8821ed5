package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product товар каталога.
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Price       float64            `bson:"price" json:"price"`
	ImageURL    string             `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	InStock     bool               `bson:"inStock" json:"inStock"`
	Stock       int                `bson:"stock" json:"stock"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ProductPatch частичное обновление товара; nil-поля не изменяются.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *float64
	ImageURL    *string
	InStock     *bool
	Stock       *int
}

// Empty сообщает, что в патче нет ни одного поля.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil &&
		p.ImageURL == nil && p.InStock == nil && p.Stock == nil
}
