package entity

import (
	"regexp"

	"github.com/oksasatya/linkfolio-api/internal/domain/schema"
)

const DefaultAvatar = "/uploads/default-avatar.png"

var linkPattern = regexp.MustCompile(`^[a-z0-9_.-]+$`)

func socialLink(name string) schema.Field {
	return schema.Field{Name: name, MaxLen: 200, Tag: "weburl"}
}

// User is a profile page: identity, a unique link handle, bio text and
// social links. fullName is derived on the way out.
func User() Kind {
	return Kind{
		Name:     "users",
		Singular: "user",
		Fields: []schema.Field{
			{Name: "firstName", Required: true, MaxLen: 50},
			{Name: "lastName", Required: true, MaxLen: 50},
			{Name: "displayName", MaxLen: 50},
			{Name: "link", Required: true, Lowercase: true, MaxLen: 30, Pattern: linkPattern,
				PatternMsg: "may only contain lowercase letters, numbers, dots, dashes and underscores"},
			{Name: "email", Required: true, Lowercase: true, MaxLen: 100, Tag: "email"},
			{Name: "shortBio", MaxLen: 160},
			{Name: "bio", MaxLen: 2000},
			{Name: "socialLinks", Type: schema.Object, Fields: []schema.Field{
				socialLink("instagram"),
				socialLink("facebook"),
				socialLink("twitter"),
				socialLink("linkedin"),
			}},
			{Name: "isActive", Type: schema.Bool, Default: true},
			{Name: "photo", Default: DefaultAvatar},
		},
		SearchFields: []string{"firstName", "lastName", "displayName", "link", "email"},
		UniqueFields: []string{"email", "link"},
		Images:       []ImageField{{Name: "photo", MaxFiles: 1, Placeholder: DefaultAvatar}},
		Derive: func(r Record) {
			r["fullName"] = joinNonEmpty(r.String("firstName"), r.String("lastName"))
		},
	}
}
