package vm

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tolelom/skillbloom/codec"
	"github.com/tolelom/skillbloom/core"
)

// DecodePayload unmarshals a handler payload, classifying failures as
// core.ErrInvalidPayload.
func DecodePayload(typ core.TxType, payload json.RawMessage, out any) error {
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: decode %s payload: %v", core.ErrInvalidPayload, typ, err)
	}
	return nil
}

// DecodeValue decodes an encoded quantity named field.
func DecodeValue(field, encoded string) (uint32, error) {
	v, err := codec.Decode(encoded)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

// RequireOwner fails with core.ErrUnauthorized unless the sender is the owner.
func RequireOwner(ctx *Context) error {
	roles, err := ctx.State.GetRoles()
	if err != nil {
		return fmt.Errorf("load roles: %w", err)
	}
	if ctx.Tx.From != roles.Owner {
		return fmt.Errorf("%w: only owner can call this function", core.ErrUnauthorized)
	}
	return nil
}

// RequireVerifier fails with core.ErrUnauthorized unless the sender is the
// verifier.
func RequireVerifier(ctx *Context) error {
	roles, err := ctx.State.GetRoles()
	if err != nil {
		return fmt.Errorf("load roles: %w", err)
	}
	if ctx.Tx.From != roles.Verifier {
		return fmt.Errorf("%w: only verifier can call this function", core.ErrUnauthorized)
	}
	return nil
}

// LoadPlayer returns the registered player at addr or core.ErrNotRegistered.
func LoadPlayer(ctx *Context, addr common.Address) (*core.Player, error) {
	p, err := ctx.State.GetPlayer(addr)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", core.ErrNotRegistered, addr.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("load player %s: %w", addr.Hex(), err)
	}
	return p, nil
}
