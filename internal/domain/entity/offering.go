package entity

import "github.com/oksasatya/linkfolio-api/internal/domain/schema"

const (
	DefaultServicePhoto  = "/uploads/default-service.png"
	DefaultWorkshopPhoto = "/uploads/default-workshop.png"
	DefaultProductPhoto  = "/uploads/default-product.png"
)

// offering is the shared shape of services, workshops and products. Prices
// are free text on purpose; nothing downstream computes with them.
func offering(name, singular, placeholder string) Kind {
	return Kind{
		Name:     name,
		Singular: singular,
		Fields: []schema.Field{
			{Name: "name", Required: true, MaxLen: 100},
			{Name: "description", Required: true, MaxLen: 300},
			{Name: "content", MaxLen: 10000},
			{Name: "price", Required: true, MaxLen: 50},
			{Name: "strikePrice", MaxLen: 50},
			{Name: "photo", Default: placeholder},
		},
		SearchFields: []string{"name", "description", "content"},
		Images:       []ImageField{{Name: "photo", MaxFiles: 1, Placeholder: placeholder}},
	}
}

func Service() Kind  { return offering("services", "service", DefaultServicePhoto) }
func Workshop() Kind { return offering("workshops", "workshop", DefaultWorkshopPhoto) }
func Product() Kind  { return offering("products", "product", DefaultProductPhoto) }
