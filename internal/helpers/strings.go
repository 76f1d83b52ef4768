package helpers

import (
	"fmt"
	"strings"
)

func StringArrayToQuotedCommaSeparatedString(a []string) string {
	sb := strings.Builder{}
	for i, str := range a {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%q", str))
	}
	return sb.String()
}
