package formulagraph

import (
	"fmt"
	"testing"
)

func benchmarkRows(n int) [][]any {
	rows := make([][]any, n)
	for r := range rows {
		rows[r] = []any{r + 1, fmt.Sprintf("=SUMIF($A$1:A%d,\">10\")", r+1), fmt.Sprintf("=VLOOKUP(%d,$A$1:$A$%d,1,FALSE)", r+1, n)}
	}
	return rows
}

func BenchmarkBuild(b *testing.B) {
	rows := benchmarkRows(500)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e, err := BuildFromSheets(map[string][][]any{"Sheet1": rows}, Options{UseColumnIndex: true})
		if err != nil {
			b.Fatal(err)
		}
		_ = e.Close()
	}
}

func BenchmarkSetCellContents(b *testing.B) {
	for _, useIndex := range []bool{false, true} {
		b.Run(fmt.Sprintf("column_index=%t", useIndex), func(b *testing.B) {
			e, err := BuildFromSheets(map[string][][]any{"Sheet1": benchmarkRows(500)}, Options{UseColumnIndex: useIndex})
			if err != nil {
				b.Fatal(err)
			}
			defer e.Close()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := e.SetCellContents(Addr(0, 0, i%500), i); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkAddRows(b *testing.B) {
	e, err := BuildFromSheets(map[string][][]any{"Sheet1": benchmarkRows(500)})
	if err != nil {
		b.Fatal(err)
	}
	defer e.Close()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.AddRows(0, 250, 1); err != nil {
			b.Fatal(err)
		}
		if _, err := e.RemoveRows(0, 250, 1); err != nil {
			b.Fatal(err)
		}
	}
}
