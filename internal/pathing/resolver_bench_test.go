package pathing

import (
	"testing"
	"time"

	"edrs-docstore/internal/domain/document"
	"edrs-docstore/internal/domain/user"
)

func benchResolver(b *testing.B) *Resolver {
	b.Helper()
	r, err := NewResolver(DefaultRoot, DefaultRoleFolders())
	if err != nil {
		b.Fatal(err)
	}
	return r
}

// BenchmarkResolve covers sanitization of both the project and the filename
func BenchmarkResolve(b *testing.B) {
	r := benchResolver(b)
	in := KeyInput{
		Role:        user.RoleProcessEngineer,
		UserID:      5,
		ProjectName: "Haradh Gas Plant Expansion Phase 2",
		Type:        document.TypePIDDiagram,
		Timestamp:   time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC),
		Filename:    "Überprüfung PID-001 (rev B).pdf",
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := r.Resolve(in); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkParseKeyParallel measures the check every signing request runs first
func BenchmarkParseKeyParallel(b *testing.B) {
	r := benchResolver(b)
	key := "rejlers-abudhabi/process-engineers/5/projects/haradh_expansion/pid-diagrams/2025/11/PID-001.pdf"

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := r.ParseKey(key); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
