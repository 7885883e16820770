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
package threads

import "math"
import "math/rand"
import "strings"
import "github.com/launix-de/blockvm/blocks"

func toNumber(v any) float64 {
	f, ok := blocks.ToNumber(v)
	if !ok {
		raise(TypeMismatch, "expecting a number but getting %s", describeValue(v))
	}
	return f
}

func toInt(v any) int {
	return int(toNumber(v))
}

func toList(v any) *blocks.List {
	l, ok := v.(*blocks.List)
	if !ok {
		raise(TypeMismatch, "expecting a list but getting %s", describeValue(v))
	}
	return l
}

func describeValue(v any) string {
	if t, ok := v.(string); ok {
		return "text \"" + t + "\""
	}
	return blocks.TypeOf(v)
}

// hyper applies a binary operation element-wise when an operand is a list.
func hyper(fn func(a, b float64) float64, a, b any) any {
	la, aIsList := a.(*blocks.List)
	lb, bIsList := b.(*blocks.List)
	switch {
	case aIsList && bIsList:
		n := la.Length()
		if lb.Length() < n {
			n = lb.Length()
		}
		result := make([]any, n)
		for i := 0; i < n; i++ {
			result[i] = hyper(fn, la.At(i+1), lb.At(i+1))
		}
		return blocks.NewList(result...)
	case aIsList:
		result := make([]any, 0, la.Length())
		la.Each(func(item any) bool {
			result = append(result, hyper(fn, item, b))
			return true
		})
		return blocks.NewList(result...)
	case bIsList:
		result := make([]any, 0, lb.Length())
		lb.Each(func(item any) bool {
			result = append(result, hyper(fn, a, item))
			return true
		})
		return blocks.NewList(result...)
	}
	return fn(toNumber(a), toNumber(b))
}

func hyperMonadic(fn func(x float64) float64, a any) any {
	if l, ok := a.(*blocks.List); ok {
		result := make([]any, 0, l.Length())
		l.Each(func(item any) bool {
			result = append(result, hyperMonadic(fn, item))
			return true
		})
		return blocks.NewList(result...)
	}
	return fn(toNumber(a))
}

// fold reduces variadic numeric inputs; a single list input is folded itself.
func fold(neutral float64, fn func(a, b float64) float64, a []any) any {
	if len(a) == 1 {
		if l, ok := a[0].(*blocks.List); ok {
			a = l.ItemsArray()
		}
	}
	var result any = neutral
	for _, v := range a {
		result = hyper(fn, result, v)
	}
	return result
}

func quotient(a, b float64) float64 {
	if b == 0 {
		switch {
		case a > 0:
			return math.Inf(1)
		case a < 0:
			return math.Inf(-1)
		}
		return 0
	}
	return a / b
}

// modulus has the sign of the divisor.
func modulus(a, b float64) float64 {
	if b == 0 {
		raise(DivisionOrDomainError, "modulus by zero")
	}
	result := math.Mod(a, b)
	if result != 0 && (result < 0) != (b < 0) {
		result += b
	}
	return result
}

func power(a, b float64) float64 {
	result := math.Pow(a, b)
	if math.IsNaN(result) {
		raise(DivisionOrDomainError, "%s ^ %s is not a number", blocks.FormatNumber(a), blocks.FormatNumber(b))
	}
	return result
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func monadic(fn string, x float64) float64 {
	switch strings.ToLower(fn) {
	case "abs":
		return math.Abs(x)
	case "neg":
		return -x
	case "sign":
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		}
		return 0
	case "ceiling":
		return math.Ceil(x)
	case "floor":
		return math.Floor(x)
	case "sqrt":
		if x < 0 {
			raise(DivisionOrDomainError, "square root of a negative number")
		}
		return math.Sqrt(x)
	case "sin":
		return math.Sin(radians(x))
	case "cos":
		return math.Cos(radians(x))
	case "tan":
		return math.Tan(radians(x))
	case "asin":
		if x < -1 || x > 1 {
			raise(DivisionOrDomainError, "asin of %s", blocks.FormatNumber(x))
		}
		return degrees(math.Asin(x))
	case "acos":
		if x < -1 || x > 1 {
			raise(DivisionOrDomainError, "acos of %s", blocks.FormatNumber(x))
		}
		return degrees(math.Acos(x))
	case "atan":
		return degrees(math.Atan(x))
	case "ln":
		if x <= 0 {
			raise(DivisionOrDomainError, "ln of %s", blocks.FormatNumber(x))
		}
		return math.Log(x)
	case "log":
		if x <= 0 {
			raise(DivisionOrDomainError, "log of %s", blocks.FormatNumber(x))
		}
		return math.Log10(x)
	case "lg":
		if x <= 0 {
			raise(DivisionOrDomainError, "lg of %s", blocks.FormatNumber(x))
		}
		return math.Log2(x)
	case "e^":
		return math.Exp(x)
	case "10^":
		return math.Pow(10, x)
	case "2^":
		return math.Exp2(x)
	case "id":
		return x
	}
	raise(TypeMismatch, "unknown function %s", fn)
	return 0
}

// compare orders numbers numerically and everything else as text.
func compare(a, b any) int {
	x, xok := blocks.ToNumber(a)
	y, yok := blocks.ToNumber(b)
	if xok && yok && strings.TrimSpace(blocks.ToText(a)) != "" && strings.TrimSpace(blocks.ToText(b)) != "" {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return blocks.CompareText(blocks.ToText(a), blocks.ToText(b))
}

func random(a, b float64) float64 {
	low, high := math.Min(a, b), math.Max(a, b)
	if low == math.Floor(low) && high == math.Floor(high) {
		return low + math.Floor(rand.Float64()*(high-low+1))
	}
	return low + rand.Float64()*(high-low)
}

func init_alu() {
	DeclareTitle("Arithmetic")

	Declare(&Declaration{
		"reportSum", "adds numbers",
		0, 1000,
		[]DeclarationParameter{
			DeclarationParameter{"value", "number", "values to add; lists add item by item"},
		}, "number",
		func(a ...any) any {
			return fold(0, func(x, y float64) float64 { return x + y }, a)
		},
	})
	Declare(&Declaration{
		"reportDifference", "subtracts b from a",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"a", "number", "minuend"},
			DeclarationParameter{"b", "number", "subtrahend"},
		}, "number",
		func(a ...any) any {
			return hyper(func(x, y float64) float64 { return x - y }, a[0], a[1])
		},
	})
	Declare(&Declaration{
		"reportProduct", "multiplies numbers",
		0, 1000,
		[]DeclarationParameter{
			DeclarationParameter{"value", "number", "values to multiply"},
		}, "number",
		func(a ...any) any {
			return fold(1, func(x, y float64) float64 { return x * y }, a)
		},
	})
	Declare(&Declaration{
		"reportQuotient", "divides a by b; division by zero reports infinity, 0/0 reports 0",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"a", "number", "dividend"},
			DeclarationParameter{"b", "number", "divisor"},
		}, "number",
		func(a ...any) any {
			return hyper(quotient, a[0], a[1])
		},
	})
	Declare(&Declaration{
		"reportModulus", "remainder with the sign of the divisor",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"a", "number", "dividend"},
			DeclarationParameter{"b", "number", "divisor, must not be 0"},
		}, "number",
		func(a ...any) any {
			return hyper(modulus, a[0], a[1])
		},
	})
	Declare(&Declaration{
		"reportPower", "a to the power of b",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"a", "number", "base"},
			DeclarationParameter{"b", "number", "exponent"},
		}, "number",
		func(a ...any) any {
			return hyper(power, a[0], a[1])
		},
	})
	Declare(&Declaration{
		"reportMin", "smallest of the numbers",
		1, 1000,
		[]DeclarationParameter{
			DeclarationParameter{"value", "number", "values"},
		}, "number",
		func(a ...any) any {
			return fold(math.Inf(1), math.Min, a)
		},
	})
	Declare(&Declaration{
		"reportMax", "largest of the numbers",
		1, 1000,
		[]DeclarationParameter{
			DeclarationParameter{"value", "number", "values"},
		}, "number",
		func(a ...any) any {
			return fold(math.Inf(-1), math.Max, a)
		},
	})
	Declare(&Declaration{
		"reportAtan2", "angle of the vector (b, a) in degrees",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"a", "number", "y"},
			DeclarationParameter{"b", "number", "x"},
		}, "number",
		func(a ...any) any {
			return hyper(func(y, x float64) float64 { return degrees(math.Atan2(y, x)) }, a[0], a[1])
		},
	})
	Declare(&Declaration{
		"reportRound", "rounds to the nearest integer, halves round up",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"value", "number", "value"},
		}, "number",
		func(a ...any) any {
			return hyperMonadic(func(x float64) float64 { return math.Floor(x + 0.5) }, a[0])
		},
	})
	Declare(&Declaration{
		"reportMonadic", "applies a named function: abs neg sign ceiling floor sqrt sin cos tan asin acos atan ln log lg e^ 10^ 2^ id",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"function", "text", "function name; angles are in degrees"},
			DeclarationParameter{"value", "number", "argument"},
		}, "number",
		func(a ...any) any {
			fn := blocks.ToText(a[0])
			return hyperMonadic(func(x float64) float64 { return monadic(fn, x) }, a[1])
		},
	})
	Declare(&Declaration{
		"reportRandom", "random number between a and b; integers if both bounds are integers",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"a", "number", "bound"},
			DeclarationParameter{"b", "number", "bound"},
		}, "number",
		func(a ...any) any {
			return random(toNumber(a[0]), toNumber(a[1]))
		},
	})

	DeclareTitle("Logic")

	comparison := func(name, desc string, test func(c int) bool) {
		Declare(&Declaration{
			name, desc,
			2, 2,
			[]DeclarationParameter{
				DeclarationParameter{"a", "any", "value"},
				DeclarationParameter{"b", "any", "value"},
			}, "bool",
			func(a ...any) any {
				return test(compare(a[0], a[1]))
			},
		})
	}
	comparison("reportLessThan", "a < b, numerically if both are numbers, else as text", func(c int) bool { return c < 0 })
	comparison("reportGreaterThan", "a > b", func(c int) bool { return c > 0 })
	comparison("reportLessThanOrEquals", "a <= b", func(c int) bool { return c <= 0 })
	comparison("reportGreaterThanOrEquals", "a >= b", func(c int) bool { return c >= 0 })

	Declare(&Declaration{
		"reportEquals", "equality: numeric for numbers, case-insensitive for text, item-wise for lists",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"a", "any", "value"},
			DeclarationParameter{"b", "any", "value"},
		}, "bool",
		func(a ...any) any {
			return blocks.Equal(a[0], a[1])
		},
	})
	Declare(&Declaration{
		"reportNotEquals", "negated reportEquals",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"a", "any", "value"},
			DeclarationParameter{"b", "any", "value"},
		}, "bool",
		func(a ...any) any {
			return !blocks.Equal(a[0], a[1])
		},
	})
	Declare(&Declaration{
		"reportIsIdentical", "identity for lists and rings, equality otherwise",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"a", "any", "value"},
			DeclarationParameter{"b", "any", "value"},
		}, "bool",
		func(a ...any) any {
			if blocks.IsPrimitive(a[0]) && blocks.IsPrimitive(a[1]) {
				return blocks.Equal(a[0], a[1])
			}
			return a[0] == a[1]
		},
	})
	Declare(&Declaration{
		"reportAnd", "true if both are true; b is only evaluated if a is true",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"a", "bool", "condition"},
			DeclarationParameter{"b", "bool", "condition"},
		}, "bool",
		formAnd,
	})
	Declare(&Declaration{
		"reportOr", "true if any is true; b is only evaluated if a is false",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"a", "bool", "condition"},
			DeclarationParameter{"b", "bool", "condition"},
		}, "bool",
		formOr,
	})
	Declare(&Declaration{
		"reportNot", "negation",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"value", "bool", "condition"},
		}, "bool",
		func(a ...any) any {
			return !blocks.ToBool(a[0])
		},
	})
	Declare(&Declaration{
		"reportBoolean", "the Boolean value of its input",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"value", "bool", "value"},
		}, "bool",
		func(a ...any) any {
			return blocks.ToBool(a[0])
		},
	})
}
