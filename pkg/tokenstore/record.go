package tokenstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrymomot/guardkit/pkg/opaque"
)

// Record is the flat row shape shared by all backends.
type Record struct {
	Series      string     `json:"series" bson:"series"`
	TokenableID string     `json:"tokenable_id" bson:"tokenable_id"`
	Type        string     `json:"type" bson:"type"`
	Name        string     `json:"name" bson:"name"`
	Hash        string     `json:"hash" bson:"hash"`
	Abilities   string     `json:"abilities" bson:"abilities"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty" bson:"last_used_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" bson:"expires_at"`
}

func (r Record) expiredAt(now time.Time) bool {
	return r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}

// Mapper converts between tokens and records.
type Mapper struct {
	ToRecord   func(*opaque.Token) (Record, error)
	FromRecord func(Record) (*opaque.Token, error)
}

// AccessTokenMapper stores abilities as a JSON array.
func AccessTokenMapper() Mapper {
	return Mapper{
		ToRecord: func(t *opaque.Token) (Record, error) {
			abilities, err := json.Marshal(t.Abilities)
			if err != nil {
				return Record{}, fmt.Errorf("encode abilities: %w", err)
			}
			rec := baseRecord(t)
			rec.Abilities = string(abilities)
			return rec, nil
		},
		FromRecord: func(r Record) (*opaque.Token, error) {
			t := baseToken(opaque.AccessToken, r)
			if r.Abilities != "" {
				if err := json.Unmarshal([]byte(r.Abilities), &t.Abilities); err != nil {
					return nil, fmt.Errorf("decode abilities: %w", err)
				}
			}
			return t, nil
		},
	}
}

// RememberMeMapper ignores abilities and names.
func RememberMeMapper() Mapper {
	return Mapper{
		ToRecord: func(t *opaque.Token) (Record, error) {
			return baseRecord(t), nil
		},
		FromRecord: func(r Record) (*opaque.Token, error) {
			return baseToken(opaque.RememberMe, r), nil
		},
	}
}

func baseRecord(t *opaque.Token) Record {
	return Record{
		Series:      t.Identifier,
		TokenableID: t.TokenableID,
		Type:        t.Type,
		Name:        t.Name,
		Hash:        t.Hash,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		LastUsedAt:  t.LastUsedAt,
		ExpiresAt:   t.ExpiresAt,
	}
}

func baseToken(kind opaque.Kind, r Record) *opaque.Token {
	return &opaque.Token{
		Kind:        kind,
		Identifier:  r.Series,
		TokenableID: r.TokenableID,
		Type:        r.Type,
		Name:        r.Name,
		Hash:        r.Hash,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		LastUsedAt:  r.LastUsedAt,
		ExpiresAt:   r.ExpiresAt,
	}
}

// RememberMeType returns the bucket discriminator for a session guard.
func RememberMeType(guard string) string {
	return opaque.RememberMe.Name + ":" + guard
}
