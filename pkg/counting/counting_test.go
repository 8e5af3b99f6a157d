package counting

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMapIncrementAndGet(t *testing.T) {
	m := NewMap[string]()
	m.Increment("Injection")
	m.Increment("Injection")
	m.Add("Crypto", 3)

	if got := m.Get("Injection"); got != 2 {
		t.Errorf("Get(Injection) = %d, want 2", got)
	}
	if got := m.Get("Crypto"); got != 3 {
		t.Errorf("Get(Crypto) = %d, want 3", got)
	}
	if got := m.Get("never"); got != 0 {
		t.Errorf("Get(never) = %d, want 0", got)
	}
	if m.Has("never") {
		t.Error("Has(never) = true, want false")
	}
	if diff := cmp.Diff([]string{"Injection", "Crypto"}, m.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}

func TestMapZeroValue(t *testing.T) {
	var m Map[string]
	if !m.IsEmpty() {
		t.Fatal("zero Map should be empty")
	}
	if m.Get("x") != 0 || m.Sum() != 0 {
		t.Fatal("zero Map should read as zero")
	}
	m.Increment("x")
	if m.Get("x") != 1 {
		t.Errorf("Get(x) = %d, want 1", m.Get("x"))
	}
}

func TestMapAddZeroRecordsKey(t *testing.T) {
	m := NewMap[string]()
	m.Add("AES", 0)
	if m.IsEmpty() {
		t.Fatal("Add with zero should still record the key")
	}
	if m.Len() != 1 || m.Get("AES") != 0 {
		t.Errorf("Len() = %d, Get(AES) = %d, want 1, 0", m.Len(), m.Get("AES"))
	}
}

func TestMapSumMatchesIncrements(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	keys := []string{"a", "b", "c", "d"}

	for round := 0; round < 50; round++ {
		m := NewMap[string]()
		want := 0
		steps := rng.IntN(100)
		for i := 0; i < steps; i++ {
			k := keys[rng.IntN(len(keys))]
			if rng.IntN(2) == 0 {
				m.Increment(k)
				want++
			} else {
				n := rng.IntN(20)
				m.Add(k, n)
				want += n
			}
		}
		if got := m.Sum(); got != want {
			t.Fatalf("round %d: Sum() = %d, want %d", round, got, want)
		}
	}
}

func TestKeysReturnsCopy(t *testing.T) {
	m := NewMap[string]()
	m.Increment("a")
	keys := m.Keys()
	keys[0] = "mutated"
	if m.Keys()[0] != "a" {
		t.Error("Keys() must not expose internal state")
	}
}

func TestTableIncrementAndRowSum(t *testing.T) {
	tbl := NewTable[string, string]()
	tbl.Increment("Injection", "OkHttp")
	tbl.Increment("Injection", "OkHttp")
	tbl.Increment("Injection", "Gson")
	tbl.Add("Crypto", "BouncyCastle", 4)

	if got := tbl.Get("Injection", "OkHttp"); got != 2 {
		t.Errorf("Get(Injection, OkHttp) = %d, want 2", got)
	}
	if got := tbl.Get("Crypto", "OkHttp"); got != 0 {
		t.Errorf("Get(Crypto, OkHttp) = %d, want 0", got)
	}

	sum, ok := tbl.RowSum("Injection")
	if !ok || sum != 3 {
		t.Errorf("RowSum(Injection) = %d, %v, want 3, true", sum, ok)
	}
	if _, ok := tbl.RowSum("Unknown"); ok {
		t.Error("RowSum(Unknown) should report an absent row")
	}

	if diff := cmp.Diff([]string{"Injection", "Crypto"}, tbl.RowKeys()); diff != "" {
		t.Errorf("RowKeys() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"OkHttp", "Gson", "BouncyCastle"}, tbl.ColumnKeys()); diff != "" {
		t.Errorf("ColumnKeys() mismatch (-want +got):\n%s", diff)
	}
}

func TestTableAddZeroCreatesNoKeys(t *testing.T) {
	tbl := NewTable[string, string]()
	tbl.Add("row", "col", 0)

	if !tbl.IsEmpty() {
		t.Error("Add with zero must not create a row")
	}
	if len(tbl.ColumnKeys()) != 0 {
		t.Error("Add with zero must not create a column")
	}
	if _, ok := tbl.RowSum("row"); ok {
		t.Error("RowSum must report the row as absent")
	}
}

func TestTableAddNegativeIsIgnored(t *testing.T) {
	tbl := NewTable[string, string]()
	tbl.Increment("MD5", "OkHttp")
	tbl.Add("MD5", "OkHttp", -1)
	tbl.Add("SHA1", "Gson", -3)

	if got := tbl.Get("MD5", "OkHttp"); got != 1 {
		t.Errorf("Get(MD5, OkHttp) = %d, want 1", got)
	}
	if diff := cmp.Diff([]string{"MD5"}, tbl.RowKeys()); diff != "" {
		t.Errorf("RowKeys mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"OkHttp"}, tbl.ColumnKeys()); diff != "" {
		t.Errorf("ColumnKeys mismatch (-want +got):\n%s", diff)
	}
}

func TestTableMerge(t *testing.T) {
	a := NewTable[string, string]()
	a.Increment("MD5", "OkHttp")
	a.Add("SHA1", "Gson", 2)

	b := NewTable[string, string]()
	b.Add("MD5", "OkHttp", 3)
	b.Increment("MD5", "Retrofit")
	b.Increment("RC4", "Gson")

	beforeA := snapshot(a)
	beforeSums := map[string]int{}
	for _, r := range []string{"MD5", "SHA1", "RC4"} {
		sa, _ := a.RowSum(r)
		sb, _ := b.RowSum(r)
		beforeSums[r] = sa + sb
	}

	a.Merge(b)

	for _, r := range []string{"MD5", "SHA1", "RC4"} {
		for _, c := range []string{"OkHttp", "Gson", "Retrofit"} {
			want := beforeA[[2]string{r, c}] + b.Get(r, c)
			if got := a.Get(r, c); got != want {
				t.Errorf("after merge Get(%s, %s) = %d, want %d", r, c, got, want)
			}
		}
		if got, _ := a.RowSum(r); got != beforeSums[r] {
			t.Errorf("after merge RowSum(%s) = %d, want %d", r, got, beforeSums[r])
		}
	}

	if diff := cmp.Diff([]string{"MD5", "SHA1", "RC4"}, a.RowKeys()); diff != "" {
		t.Errorf("RowKeys() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"OkHttp", "Gson", "Retrofit"}, a.ColumnKeys()); diff != "" {
		t.Errorf("ColumnKeys() mismatch (-want +got):\n%s", diff)
	}
}

func TestTableMergeTwiceDoubleCounts(t *testing.T) {
	total := NewTable[string, string]()
	job := NewTable[string, string]()
	job.Increment("Injection", "OkHttp")

	total.Merge(job)
	total.Merge(job)

	if got := total.Get("Injection", "OkHttp"); got != 2 {
		t.Errorf("Get = %d, want 2", got)
	}
}

func TestTableMergeNilAndZeroValue(t *testing.T) {
	var tbl Table[string, int]
	tbl.Merge(nil)
	if !tbl.IsEmpty() {
		t.Fatal("merging nil must not change the table")
	}

	other := NewTable[string, int]()
	other.Increment("x", 1)
	tbl.Merge(other)
	if tbl.Get("x", 1) != 1 {
		t.Errorf("Get(x, 1) = %d, want 1", tbl.Get("x", 1))
	}
}

func TestTableEachOrder(t *testing.T) {
	tbl := NewTable[string, string]()
	tbl.Increment("b", "y")
	tbl.Increment("a", "x")
	tbl.Increment("b", "x")

	type cell struct {
		Row, Col string
		N        int
	}
	var got []cell
	tbl.Each(func(r, c string, n int) {
		got = append(got, cell{r, c, n})
	})

	want := []cell{
		{"b", "y", 1},
		{"b", "x", 1},
		{"a", "x", 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Each() mismatch (-want +got):\n%s", diff)
	}
}

func snapshot(t *Table[string, string]) map[[2]string]int {
	out := map[[2]string]int{}
	t.Each(func(r, c string, n int) {
		out[[2]string{r, c}] = n
	})
	return out
}
