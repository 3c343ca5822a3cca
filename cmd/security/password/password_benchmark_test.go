package password

import "testing"

// Benchmarks run the production cost so parameter changes show their real
// login-path latency.

func BenchmarkHash(b *testing.B) {
	cfg := DefaultConfig()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := cfg.Hash("correct horse battery staple"); err != nil {
			b.Fatalf("hash: %v", err)
		}
	}
}

func BenchmarkVerify(b *testing.B) {
	cfg := DefaultConfig()
	h, err := cfg.Hash("correct horse battery staple")
	if err != nil {
		b.Fatalf("hash: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ok, err := cfg.Verify(h, "correct horse battery staple")
		if err != nil || !ok {
			b.Fatalf("verify: ok=%v err=%v", ok, err)
		}
	}
}
