package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"student-violation-service/internal/model"
)

type Claims struct {
	UserID uuid.UUID         `json:"sub"`
	Name   string            `json:"name"`
	Roles  []model.ActorRole `json:"roles"`
	jwt.RegisteredClaims
}

// Actor builds the caller identity from the token claims. The first role is
// authoritative, matching how the platform issues tokens.
func (c *Claims) Actor() model.Actor {
	actor := model.Actor{ID: c.UserID, Name: c.Name}
	if len(c.Roles) > 0 {
		actor.Role = c.Roles[0]
	}
	return actor
}

type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret)}
}

func (p *Parser) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return p.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}
