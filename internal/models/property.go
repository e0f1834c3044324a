package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PropertyType string

const (
	PropertyApartment PropertyType = "Apartment"
	PropertyLand      PropertyType = "Land"
	PropertyHouse     PropertyType = "House"
)

type Transaction string

const (
	TransactionSale Transaction = "Sale"
	TransactionRent Transaction = "Rent"
)

type ListingStatus string

const (
	StatusActive   ListingStatus = "active"
	StatusInactive ListingStatus = "inactive"
	StatusSold     ListingStatus = "sold"
	StatusRented   ListingStatus = "rented"
)

type Amenity string

// Amenities is the fixed vocabulary a listing may draw from.
var Amenities = []Amenity{
	"Equipped kitchen",
	"Wi-Fi",
	"Lake view",
	"Free parking",
	"Swimming pool",
	"Light",
	"Air conditioning",
	"Gym",
	"Fully Fitted Kitchen",
	"Balcony",
	"Water Heater",
	"CCTV",
}

func (a Amenity) Valid() bool {
	for _, known := range Amenities {
		if a == known {
			return true
		}
	}
	return false
}

type Property struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	PropertyType        PropertyType       `bson:"property_type" json:"propertyType" validate:"required,oneof=Apartment Land House"`
	PropertyTransaction Transaction        `bson:"property_transaction" json:"propertyTransaction" validate:"required,oneof=Sale Rent"`
	Title               string             `bson:"title" json:"title" validate:"required,max=100"`
	Location            string             `bson:"location" json:"location" validate:"required"`
	Price               float64            `bson:"price" json:"price" validate:"gte=0"`
	Size                *int               `bson:"size,omitempty" json:"size,omitempty" validate:"omitempty,gte=0"`
	Bedrooms            *int               `bson:"bedrooms,omitempty" json:"bedrooms,omitempty" validate:"omitempty,gte=0"`
	Bathrooms           *int               `bson:"bathrooms,omitempty" json:"bathrooms,omitempty" validate:"omitempty,gte=0"`
	Floor               *int               `bson:"floor,omitempty" json:"floor,omitempty" validate:"omitempty,gte=0"`
	AgentName           string             `bson:"agent_name,omitempty" json:"agentName,omitempty"`
	AgentNumber         string             `bson:"agent_number,omitempty" json:"agentNumber,omitempty"`
	Amenities           []Amenity          `bson:"amenities" json:"amenities" validate:"dive,amenity"`
	Description         string             `bson:"description" json:"description" validate:"max=1000"`
	Images              []string           `bson:"images" json:"images" validate:"dive,url"`
	VideoURL            string             `bson:"video_url,omitempty" json:"videoUrl,omitempty" validate:"omitempty,url"`
	Featured            bool               `bson:"featured" json:"featured"`
	Status              ListingStatus      `bson:"status" json:"status" validate:"required,oneof=active inactive sold rented"`
	CreatedAt           time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt           time.Time          `bson:"updated_at" json:"updatedAt"`
}

// PropertyPatch is a partial listing update. Only non-nil fields are applied.
type PropertyPatch struct {
	PropertyType        *PropertyType
	PropertyTransaction *Transaction
	Title               *string
	Location            *string
	Price               *float64
	Size                *int
	Bedrooms            *int
	Bathrooms           *int
	Floor               *int
	AgentName           *string
	AgentNumber         *string
	Amenities           *[]Amenity
	Description         *string
	Images              *[]string
	VideoURL            *string
	Featured            *bool
	Status              *ListingStatus
}

// Apply copies every set field of the patch onto p.
func (pp *PropertyPatch) Apply(p *Property) {
	if pp.PropertyType != nil {
		p.PropertyType = *pp.PropertyType
	}
	if pp.PropertyTransaction != nil {
		p.PropertyTransaction = *pp.PropertyTransaction
	}
	if pp.Title != nil {
		p.Title = *pp.Title
	}
	if pp.Location != nil {
		p.Location = *pp.Location
	}
	if pp.Price != nil {
		p.Price = *pp.Price
	}
	if pp.Size != nil {
		p.Size = intPtr(*pp.Size)
	}
	if pp.Bedrooms != nil {
		p.Bedrooms = intPtr(*pp.Bedrooms)
	}
	if pp.Bathrooms != nil {
		p.Bathrooms = intPtr(*pp.Bathrooms)
	}
	if pp.Floor != nil {
		p.Floor = intPtr(*pp.Floor)
	}
	if pp.AgentName != nil {
		p.AgentName = *pp.AgentName
	}
	if pp.AgentNumber != nil {
		p.AgentNumber = *pp.AgentNumber
	}
	if pp.Amenities != nil {
		p.Amenities = append([]Amenity{}, *pp.Amenities...)
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Images != nil {
		p.Images = append([]string{}, *pp.Images...)
	}
	if pp.VideoURL != nil {
		p.VideoURL = *pp.VideoURL
	}
	if pp.Featured != nil {
		p.Featured = *pp.Featured
	}
	if pp.Status != nil {
		p.Status = *pp.Status
	}
}

func intPtr(v int) *int { return &v }

type PropertyFilter struct {
	PropertyType        PropertyType
	PropertyTransaction Transaction
	Status              ListingStatus
	Location            string
	MinPrice            *float64
	MaxPrice            *float64
	FeaturedOnly        bool
	Limit               int64
	Offset              int64
}
