package idgen

import (
	"testing"
)

// ========================================
// Generator Benchmark
// ========================================

func BenchmarkNextID(b *testing.B) {
	gen, _ := NewGenerator(Node{WorkerID: 1, DatacenterID: 1})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		gen.NextID()
	}
}

func BenchmarkNextID_Parallel(b *testing.B) {
	gen, _ := NewGenerator(Node{WorkerID: 1, DatacenterID: 1})
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			gen.NextID()
		}
	})
}

func BenchmarkNextIDString(b *testing.B) {
	gen, _ := NewGenerator(Node{WorkerID: 1, DatacenterID: 1})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		gen.NextIDString()
	}
}

// ========================================
// Holder Benchmark
// ========================================

func BenchmarkHolder_Parallel(b *testing.B) {
	gen, _ := NewGenerator(Node{WorkerID: 1, DatacenterID: 1})
	h := NewHolder()
	_ = h.Init(gen)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			h.NextID()
		}
	})
}
