package notary

import (
	"encoding/base64"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"xdao.co/graphwire/reference"
)

func depositToStruct(d reference.Deposit) *structpb.Struct {
	expires := ""
	if !d.ExpiresAt.IsZero() {
		expires = d.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"sender":        structpb.NewStringValue(d.Sender),
		"identifier":    structpb.NewStringValue(d.Identifier),
		"hash":          structpb.NewStringValue(d.Hash),
		"encrypted_key": structpb.NewStringValue(base64.StdEncoding.EncodeToString(d.EncryptedKey)),
		"signature":     structpb.NewStringValue(d.Signature),
		"expires_at":    structpb.NewStringValue(expires),
	}}
}

func depositFromStruct(s *structpb.Struct) (reference.Deposit, error) {
	d := reference.Deposit{
		Sender:     str(s, "sender"),
		Identifier: str(s, "identifier"),
		Hash:       str(s, "hash"),
		Signature:  str(s, "signature"),
	}
	key, err := base64.StdEncoding.DecodeString(str(s, "encrypted_key"))
	if err != nil {
		return reference.Deposit{}, fmt.Errorf("%w: encrypted_key: %v", ErrInvalid, err)
	}
	d.EncryptedKey = key
	if v := str(s, "expires_at"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return reference.Deposit{}, fmt.Errorf("%w: expires_at: %v", ErrInvalid, err)
		}
		d.ExpiresAt = t
	}
	return d, nil
}

func keyStruct(sender, identifier string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"sender":     structpb.NewStringValue(sender),
		"identifier": structpb.NewStringValue(identifier),
	}}
}

func str(s *structpb.Struct, field string) string {
	return s.GetFields()[field].GetStringValue()
}
