package numfmt

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Style names a separator convention. The order list and order form group
// thousands with "." and keep "." as the decimal point; the invoice view uses
// the separators of a locale.
type Style struct {
	Name    string
	Group   string
	Decimal string
}

var (
	Plain      = Style{Name: "plain", Decimal: "."}
	DotGrouped = Style{Name: "dot", Group: ".", Decimal: "."}
)

// LocaleStyle derives the grouping and decimal separators of tag.
func LocaleStyle(tag language.Tag) Style {
	p := message.NewPrinter(tag)
	style := Style{Name: tag.String(), Decimal: "."}

	grouped := []rune(p.Sprintf("%d", 1234567))
	for _, r := range grouped {
		if !unicode.IsDigit(r) {
			style.Group = string(r)
			break
		}
	}

	half := []rune(p.Sprintf("%.1f", 0.5))
	if len(half) == 3 {
		style.Decimal = string(half[1])
	}
	return style
}

// StyleByName resolves "plain", "dot" or a BCP 47 locale tag such as "vi".
func StyleByName(name string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "dot":
		return DotGrouped, nil
	case "plain":
		return Plain, nil
	}
	tag, err := language.Parse(name)
	if err != nil {
		return Style{}, fmt.Errorf("unknown number style %q: %w", name, err)
	}
	return LocaleStyle(tag), nil
}

// Format renders value with exactly precision fraction digits, or as a
// rounded integer when precision is 0. Only the integer part is grouped.
func Format(value decimal.Decimal, precision int, style Style) string {
	if precision < 0 {
		precision = 0
	}
	s := value.StringFixed(int32(precision))
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart, _ := strings.Cut(s, ".")
	out := group(intPart, style.Group)
	if precision > 0 {
		out += style.Decimal + fracPart
	}
	if negative {
		out = "-" + out
	}
	return out
}

// Display re-renders a stored numeric string in style, keeping the number of
// decimals it was stored with. Blank input stays blank.
func Display(raw string, style Style) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return Format(LooseParse(raw), Precision(raw), style)
}

func group(digits string, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
