package extract

import (
    "strings"
    "testing"
)

// Benchmark FromHTML on notice-sized, solicitation-sized and bid-book-sized pages.
func BenchmarkFromHTML(b *testing.B) {
	small := []byte("<html><head><title>RFP</title></head><body><p>Bid Number: 1</p></body></html>")
	medium := makeHTML(50, 60)
	large := makeHTML(200, 200)

	b.Run("small", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = FromHTML(small)
		}
	})
	b.Run("medium", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = FromHTML(medium)
		}
	})
	b.Run("large", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = FromHTML(large)
		}
	})
}

func makeHTML(rows int, itemsPerList int) []byte {
    builder := new(strings.Builder)
	builder.WriteString("<html><head><title>Solicitation</title><script>var a=1;</script></head><body><table>")
	for i := 0; i < rows; i++ {
		builder.WriteString("<tr><th>Section</th><td>")
		builder.WriteString(sampleText)
		builder.WriteString("</td></tr>")
	}
	builder.WriteString("</table><ol>")
	for i := 0; i < itemsPerList; i++ {
		builder.WriteString("<li>")
		builder.WriteString(sampleText)
		builder.WriteString("</li>")
	}
	builder.WriteString("</ol></body></html>")
	return []byte(builder.String())
}

const sampleText = "Contractor shall furnish all labor, equipment and materials; proposals received after the due date will not be considered."