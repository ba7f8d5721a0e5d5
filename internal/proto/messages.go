package proto

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// Message keys.
const (
	KeyEmail           = "email"
	KeyFullName        = "full_name"
	KeyPassword        = "password"
	KeyCurrentPassword = "current_password"
	KeyNewPassword     = "new_password"
	KeyAccessToken     = "access_token"
	KeyRefreshToken    = "refresh_token"
	KeyUser            = "user"
	KeyID              = "id"
	KeyCreatedAt       = "created_at"
	KeyUpdatedAt       = "updated_at"
	KeyStatus          = "status"
	KeyMessage         = "message"
)

// User is the wire form of an account view.
type User struct {
	ID        string
	Email     string
	FullName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Strings builds a message whose values are all strings. Unlike
// structpb.NewStruct it cannot fail.
func Strings(kv map[string]string) *structpb.Struct {
	s := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(kv))}
	for k, v := range kv {
		s.Fields[k] = structpb.NewStringValue(v)
	}
	return s
}

// GetString returns the string stored under key, or "" when the key is
// missing or holds another kind.
func GetString(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

// UserValue encodes u as a nested message. Times are RFC 3339 in UTC.
func UserValue(u User) *structpb.Value {
	return structpb.NewStructValue(Strings(map[string]string{
		KeyID:        u.ID,
		KeyEmail:     u.Email,
		KeyFullName:  u.FullName,
		KeyCreatedAt: u.CreatedAt.UTC().Format(time.RFC3339Nano),
		KeyUpdatedAt: u.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}))
}

// GetUser decodes the nested user message under KeyUser. ok is false when
// it is absent.
func GetUser(s *structpb.Struct) (u User, ok bool) {
	nested := s.GetFields()[KeyUser].GetStructValue()
	if nested == nil {
		return User{}, false
	}

	u = User{
		ID:       GetString(nested, KeyID),
		Email:    GetString(nested, KeyEmail),
		FullName: GetString(nested, KeyFullName),
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, GetString(nested, KeyCreatedAt))
	u.UpdatedAt, _ = time.Parse(time.RFC3339Nano, GetString(nested, KeyUpdatedAt))
	return u, true
}
