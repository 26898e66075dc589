package models

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
)

// Ids are random 64-bit integers assigned by whoever creates the row. On the
// wire they travel as decimal strings so that clients with 53-bit floats
// (JavaScript) cannot corrupt them. Every table gets its own id type so that
// a MovementID can never be passed where an ActionEventID is expected.

// RandomID returns a non-negative random 63-bit id.
func RandomID() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("read random id: %v", err))
	}
	return int64(binary.BigEndian.Uint64(buf[:]) >> 1)
}

func marshalID(id int64) ([]byte, error) {
	return json.Marshal(strconv.FormatInt(id, 10))
}

func unmarshalID(data []byte) (int64, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return 0, fmt.Errorf("id must be a decimal string: %w", err)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse id %q: %w", s, err)
	}
	return id, nil
}

type UserID int64

func (id UserID) MarshalJSON() ([]byte, error) { return marshalID(int64(id)) }
func (id *UserID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalID(data)
	*id = UserID(v)
	return err
}

type PlatformID int64

func (id PlatformID) MarshalJSON() ([]byte, error) { return marshalID(int64(id)) }
func (id *PlatformID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalID(data)
	*id = PlatformID(v)
	return err
}

type PlatformCredentialID int64

func (id PlatformCredentialID) MarshalJSON() ([]byte, error) { return marshalID(int64(id)) }
func (id *PlatformCredentialID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalID(data)
	*id = PlatformCredentialID(v)
	return err
}

type ActionProviderID int64

func (id ActionProviderID) MarshalJSON() ([]byte, error) { return marshalID(int64(id)) }
func (id *ActionProviderID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalID(data)
	*id = ActionProviderID(v)
	return err
}

type ActionID int64

func (id ActionID) MarshalJSON() ([]byte, error) { return marshalID(int64(id)) }
func (id *ActionID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalID(data)
	*id = ActionID(v)
	return err
}

type ActionRuleID int64

func (id ActionRuleID) MarshalJSON() ([]byte, error) { return marshalID(int64(id)) }
func (id *ActionRuleID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalID(data)
	*id = ActionRuleID(v)
	return err
}

type ActionEventID int64

func (id ActionEventID) MarshalJSON() ([]byte, error) { return marshalID(int64(id)) }
func (id *ActionEventID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalID(data)
	*id = ActionEventID(v)
	return err
}

type MovementID int64

func (id MovementID) MarshalJSON() ([]byte, error) { return marshalID(int64(id)) }
func (id *MovementID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalID(data)
	*id = MovementID(v)
	return err
}

type RouteID int64

func (id RouteID) MarshalJSON() ([]byte, error) { return marshalID(int64(id)) }
func (id *RouteID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalID(data)
	*id = RouteID(v)
	return err
}

type CardioSessionID int64

func (id CardioSessionID) MarshalJSON() ([]byte, error) { return marshalID(int64(id)) }
func (id *CardioSessionID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalID(data)
	*id = CardioSessionID(v)
	return err
}

type StrengthSessionID int64

func (id StrengthSessionID) MarshalJSON() ([]byte, error) { return marshalID(int64(id)) }
func (id *StrengthSessionID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalID(data)
	*id = StrengthSessionID(v)
	return err
}

type StrengthSetID int64

func (id StrengthSetID) MarshalJSON() ([]byte, error) { return marshalID(int64(id)) }
func (id *StrengthSetID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalID(data)
	*id = StrengthSetID(v)
	return err
}

type MetconID int64

func (id MetconID) MarshalJSON() ([]byte, error) { return marshalID(int64(id)) }
func (id *MetconID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalID(data)
	*id = MetconID(v)
	return err
}

type MetconMovementID int64

func (id MetconMovementID) MarshalJSON() ([]byte, error) { return marshalID(int64(id)) }
func (id *MetconMovementID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalID(data)
	*id = MetconMovementID(v)
	return err
}

type MetconSessionID int64

func (id MetconSessionID) MarshalJSON() ([]byte, error) { return marshalID(int64(id)) }
func (id *MetconSessionID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalID(data)
	*id = MetconSessionID(v)
	return err
}

type DiaryID int64

func (id DiaryID) MarshalJSON() ([]byte, error) { return marshalID(int64(id)) }
func (id *DiaryID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalID(data)
	*id = DiaryID(v)
	return err
}

type WodID int64

func (id WodID) MarshalJSON() ([]byte, error) { return marshalID(int64(id)) }
func (id *WodID) UnmarshalJSON(data []byte) error {
	v, err := unmarshalID(data)
	*id = WodID(v)
	return err
}
