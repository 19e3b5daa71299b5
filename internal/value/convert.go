package value

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FromDriver converts a value produced by database/sql into a Value.
//
// dbType is the column's database type name as reported by
// sql.ColumnType.DatabaseTypeName. It decides how ambiguous driver
// representations are read: drivers commonly return NUMERIC columns as text or
// []byte, and text columns as []byte.
func FromDriver(v any, dbType string) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case int64:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return NewDecimal(strconv.FormatUint(val, 10))
		}
		return Int(val), nil
	case float64:
		if isDecimalType(dbType) {
			return NewDecimal(strconv.FormatFloat(val, 'f', -1, 64))
		}
		return Float(val), nil
	case float32:
		return Float(val), nil
	case bool:
		return Bool(val), nil
	case time.Time:
		return Time{val}, nil
	case string:
		return fromText(val, dbType)
	case []byte:
		if isBinaryType(dbType) {
			cp := make([]byte, len(val))
			copy(cp, val)
			return Bytes(cp), nil
		}
		return fromText(string(val), dbType)
	case fmt.Stringer:
		return fromText(val.String(), dbType)
	default:
		return nil, fmt.Errorf("unsupported driver value %T for column type %q", v, dbType)
	}
}

func fromText(s, dbType string) (Value, error) {
	if isDecimalType(dbType) {
		return NewDecimal(s)
	}
	return String(s), nil
}

func isDecimalType(dbType string) bool {
	switch strings.ToUpper(dbType) {
	case "NUMERIC", "DECIMAL", "MONEY", "SMALLMONEY":
		return true
	}
	return false
}

func isBinaryType(dbType string) bool {
	switch strings.ToUpper(dbType) {
	case "BLOB", "BYTEA", "BINARY", "VARBINARY", "IMAGE", "LONGBLOB", "MEDIUMBLOB", "TINYBLOB":
		return true
	}
	return false
}

// FromNative converts a decoded configuration value (YAML, JSON or
// environment) into a Value. Nested maps and slices are rejected because
// parameters are scalars.
func FromNative(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return NewDecimal(strconv.FormatUint(val, 10))
		}
		return Int(val), nil
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return Int(int64(val)), nil
		}
		return Float(val), nil
	case float32:
		return Float(val), nil
	case bool:
		return Bool(val), nil
	case time.Time:
		return Time{val}, nil
	default:
		return nil, fmt.Errorf("unsupported parameter value %T: parameters must be scalars", v)
	}
}

// Driver converts v into an argument accepted by database/sql drivers.
func Driver(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Decimal:
		return val.Decimal.String()
	case Bool:
		return bool(val)
	case Time:
		return val.Time
	case Bytes:
		return []byte(val)
	default:
		return nil
	}
}

// EncodeText renders v as a (kind, text) pair that DecodeText reverses
// exactly. Used to persist parameters.
func EncodeText(v Value) (Kind, string) {
	switch val := v.(type) {
	case nil, Null:
		return KindNull, ""
	case Float:
		return KindFloat, strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Bytes:
		return KindBytes, base64.StdEncoding.EncodeToString(val)
	default:
		return v.Kind(), Format(v)
	}
}

// DecodeText reverses EncodeText.
func DecodeText(kind Kind, text string) (Value, error) {
	switch kind {
	case KindNull:
		return Null{}, nil
	case KindString:
		return String(text), nil
	case KindInt:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode int %q: %w", text, err)
		}
		return Int(n), nil
	case KindFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("decode float %q: %w", text, err)
		}
		return Float(f), nil
	case KindDecimal:
		return NewDecimal(text)
	case KindBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("decode bool %q: %w", text, err)
		}
		return Bool(b), nil
	case KindTime:
		t, err := time.Parse(time.RFC3339Nano, text)
		if err != nil {
			return nil, fmt.Errorf("decode time %q: %w", text, err)
		}
		return Time{t}, nil
	case KindBytes:
		b, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("decode bytes: %w", err)
		}
		return Bytes(b), nil
	default:
		return nil, fmt.Errorf("unknown value kind %q", kind)
	}
}
