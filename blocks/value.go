/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package blocks

import "fmt"
import "math"
import "sync"
import "strconv"
import "strings"
import "golang.org/x/text/cases"
import "golang.org/x/text/collate"
import "golang.org/x/text/language"

/* values flowing through scripts:
- nil (empty slot)
- float64
- string
- bool
- *List
- anything else the runtime hands out (rings, continuations, receivers)
*/

func IsNumber(v any) bool {
	_, ok := ToNumber(v)
	return ok
}

// ToNumber converts numbers, numeric text and booleans. Empty text and nil
// count as zero.
func ToNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, true
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, true
		}
		switch s {
		case "Infinity", "+Infinity":
			return math.Inf(1), true
		case "-Infinity":
			return math.Inf(-1), true
		case "NaN":
			return math.NaN(), true
		}
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			if i, err := strconv.ParseInt(s[2:], 16, 64); err == nil {
				return float64(i), true
			}
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
		// "inf" and friends are not numbers here
		return 0, false
	}
	return 0, false
}

func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0" // also -0
	}
	if math.Abs(f) < 1e21 && math.Abs(f) >= 1e-6 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func ToText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return FormatNumber(x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case *List:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func ToBool(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != "" && !strings.EqualFold(x, "false")
	}
	return true
}

var textCollator = collate.New(language.Und, collate.IgnoreCase)
var textCollatorLock sync.Mutex

// CompareText orders two texts ignoring case.
func CompareText(a, b string) int {
	textCollatorLock.Lock()
	defer textCollatorLock.Unlock()
	return textCollator.CompareString(a, b)
}

// Equal compares like the = block: numerically if both sides are numbers,
// case-insensitive for text, element-wise for lists.
func Equal(a, b any) bool {
	if la, ok := a.(*List); ok {
		if lb, ok := b.(*List); ok {
			return la.Equal(lb)
		}
		return false
	}
	if _, ok := b.(*List); ok {
		return false
	}
	if isPrimitive(a) && isPrimitive(b) {
		if !isBlankText(a) && !isBlankText(b) {
			fa, oka := ToNumber(a)
			fb, okb := ToNumber(b)
			if oka && okb {
				if math.IsNaN(fa) && math.IsNaN(fb) {
					return true
				}
				return fa == fb
			}
		}
		return cases.Fold().String(ToText(a)) == cases.Fold().String(ToText(b))
	}
	return a == b
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case nil, float64, string, bool:
		return true
	}
	return false
}

func isBlankText(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// IsPrimitive reports whether v is a number, text, boolean or nil.
func IsPrimitive(v any) bool {
	return isPrimitive(v)
}

// TypeOf names the type of a value the way the "type of" block does.
func TypeOf(v any) string {
	switch x := v.(type) {
	case nil:
		return "nothing"
	case float64:
		return "number"
	case string:
		if _, ok := ToNumber(x); ok && strings.TrimSpace(x) != "" {
			return "number"
		}
		return "text"
	case bool:
		return "Boolean"
	case *List:
		return "list"
	case interface{ TypeName() string }:
		return x.TypeName()
	}
	return "unknown"
}
