package schemas

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// UserID accepts both 7 and "7" on the wire; clients have always sent either.
type UserID int64

func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q", data)
	}
	*id = UserID(v)
	return nil
}

func (id UserID) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(id))
}
