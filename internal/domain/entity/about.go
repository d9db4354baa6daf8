package entity

import "github.com/oksasatya/linkfolio-api/internal/domain/schema"

const MaxAboutImages = 4

// About is the free-form "about me" section with a small gallery.
func About() Kind {
	return Kind{
		Name:     "about",
		Singular: "about",
		Fields: []schema.Field{
			{Name: "description", Required: true, MaxLen: 10000},
			{Name: "images", Type: schema.StringList, MaxItems: MaxAboutImages},
		},
		SearchFields: []string{"description"},
		Images:       []ImageField{{Name: "images", Multi: true, MaxFiles: MaxAboutImages}},
	}
}
