// Package profile models the user attributes that feed vectorization.
package profile

import (
	"strings"

	"github.com/kailas-cloud/vibematch/internal/domain"
)

// Gender is the recorded gender of a user.
type Gender string

// Recognised genders. Anything else is stored as Other.
const (
	Male   Gender = "male"
	Female Gender = "female"
	Other  Gender = "other"
)

// ParseGender normalises free-form input. Empty and unknown values map to Other.
func ParseGender(s string) Gender {
	switch Gender(strings.ToLower(strings.TrimSpace(s))) {
	case Male:
		return Male
	case Female:
		return Female
	default:
		return Other
	}
}

// Opposite reports whether g and o form a male/female pair.
func (g Gender) Opposite(o Gender) bool {
	return (g == Male && o == Female) || (g == Female && o == Male)
}

// PromptSlots is the number of free-text prompt answers a profile carries.
const PromptSlots = 3

// Prompt slot indexes.
const (
	PromptFirstDate = iota
	PromptBeverage
	PromptSong
)

// Profile is a read-only snapshot of a user's profile.
type Profile struct {
	UserID      string
	Gender      Gender
	Interests   []string
	VibeTags    []string
	HangoutSpot string
	Preferences string
	Prompts     [PromptSlots]string

	// Passthrough attributes, never vectorized.
	Name     string
	Bio      string
	Age      int
	Location string
}

// Raw is the wire form of a profile: nil pointers mark missing fields,
// which is different from present-but-empty.
type Raw struct {
	UserID      string
	Gender      string
	Interests   *[]string
	VibeTags    *[]string
	HangoutSpot *string
	Preferences *string
	Prompts     [PromptSlots]*string

	Name     string
	Bio      string
	Age      int
	Location string
}

// Profile validates required fields and returns the typed profile.
func (r Raw) Profile() (Profile, error) {
	if strings.TrimSpace(r.UserID) == "" {
		return Profile{}, domain.NewInvalidProfile("user_id")
	}
	switch {
	case r.Interests == nil:
		return Profile{}, domain.NewInvalidProfile("interests")
	case r.VibeTags == nil:
		return Profile{}, domain.NewInvalidProfile("campusVibeTags")
	case r.HangoutSpot == nil:
		return Profile{}, domain.NewInvalidProfile("hangoutSpot")
	case r.Preferences == nil:
		return Profile{}, domain.NewInvalidProfile("preferences")
	}

	p := Profile{
		UserID:      r.UserID,
		Gender:      ParseGender(r.Gender),
		Interests:   *r.Interests,
		VibeTags:    *r.VibeTags,
		HangoutSpot: *r.HangoutSpot,
		Preferences: *r.Preferences,
		Name:        r.Name,
		Bio:         r.Bio,
		Age:         r.Age,
		Location:    r.Location,
	}
	for i, pr := range r.Prompts {
		if pr != nil {
			p.Prompts[i] = *pr
		}
	}
	return p, nil
}
