package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToken(t *testing.T) {
	cases := []struct {
		token    string
		wantType string
		wantNum  int
	}{
		{"<Person_1>", "Person", 1},
		{"<Email_Address_3>", "Email_Address", 3},
		{"<Weird>", "Weird", 0},
		{"<Type_With_Many_Parts_12>", "Type_With_Many_Parts", 12},
		{"<Trailing_Underscore_>", "Trailing_Underscore_", 0},
		{"<Not_Numeric_1a>", "Not_Numeric_1a", 0},
		{"no-brackets", "no-brackets", 0},
		{"Raw_7", "Raw", 7},
	}

	for _, tc := range cases {
		t.Run(tc.token, func(t *testing.T) {
			gotType, gotNum := ParseToken(tc.token)
			assert.Equal(t, tc.wantType, gotType)
			assert.Equal(t, tc.wantNum, gotNum)
		})
	}
}

func TestGetOrCreateStable(t *testing.T) {
	r := New()

	first := r.GetOrCreate("Hans Mueller", "<Person_1>")
	assert.Equal(t, "<Person_1>", first)

	// Second call with a completely different detector token must return
	// the token assigned first.
	second := r.GetOrCreate("Hans Mueller", "<Person_9>")
	assert.Equal(t, first, second)

	assert.Equal(t, 1, r.Len())
}

func TestGetOrCreateDistinctValues(t *testing.T) {
	r := New()

	a := r.GetOrCreate("Hans Mueller", "<Person_1>")
	b := r.GetOrCreate("Marie Dupont", "<Person_1>")
	require.NotEqual(t, a, b)

	assert.Equal(t, "<Person_1>", a)
	assert.Equal(t, "<Person_2>", b)

	// A different entity type gets its own counter.
	c := r.GetOrCreate("hans@example.de", "<Email_Address_4>")
	assert.Equal(t, "<Email_Address_1>", c)
}

func TestGetOrCreateMalformedDetectorToken(t *testing.T) {
	r := New()

	// A detector token without brackets still yields a usable type rather
	// than failing the registration.
	tok := r.GetOrCreate("something", "garbage")
	assert.Equal(t, "<garbage_1>", tok)
}

func TestReplaceInTextSubstringSafety(t *testing.T) {
	r := New()
	r.GetOrCreate("Marie", "<Person_1>")
	r.GetOrCreate("Marie Dupont", "<Person_2>")

	out := r.ReplaceInText("Marie Dupont called Marie")
	assert.Equal(t, "<Person_2> called <Person_1>", out)
}

func TestReplaceInTextRegexMetacharacters(t *testing.T) {
	r := New()
	r.GetOrCreate("acct (primary) $42.00", "<Account_1>")

	out := r.ReplaceInText("charge to acct (primary) $42.00 failed")
	assert.Equal(t, "charge to <Account_1> failed", out)
}

func TestReplaceInTextUnknownValuesPassThrough(t *testing.T) {
	r := New()
	r.GetOrCreate("Hans Mueller", "<Person_1>")

	out := r.ReplaceInText("Lars Johansson emailed Hans Mueller")
	assert.Equal(t, "Lars Johansson emailed <Person_1>", out)
}

func TestReplaceInTextEveryOccurrence(t *testing.T) {
	r := New()
	r.GetOrCreate("Marie", "<Person_1>")

	out := r.ReplaceInText("Marie, Marie and Marie")
	assert.Equal(t, "<Person_1>, <Person_1> and <Person_1>", out)
}

func TestRoundTrip(t *testing.T) {
	r := New()
	r.GetOrCreate("Hans Mueller", "<Person_1>")
	r.GetOrCreate("hans.mueller@example.de", "<Email_Address_1>")
	r.GetOrCreate("Marie Dupont", "<Person_7>")

	text := "Hans Mueller (hans.mueller@example.de) met Marie Dupont twice."
	replaced := r.ReplaceInText(text)
	assert.NotContains(t, replaced, "Hans Mueller")
	assert.NotContains(t, replaced, "hans.mueller@example.de")
	assert.NotContains(t, replaced, "Marie Dupont")

	assert.Equal(t, text, r.RestoreText(replaced))
}

func TestReplaceInTextIdempotent(t *testing.T) {
	r := New()
	r.GetOrCreate("Hans Mueller", "<Person_1>")
	r.GetOrCreate("Marie Dupont", "<Person_2>")

	once := r.ReplaceInText("Hans Mueller and Marie Dupont")
	twice := r.ReplaceInText(once)
	assert.Equal(t, once, twice)
}

func TestConcurrentGetOrCreate(t *testing.T) {
	r := New()

	const workers = 16
	var wg sync.WaitGroup
	tokens := make([]string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Half the workers register the same value, the rest register
			// distinct values of the same type.
			if i%2 == 0 {
				tokens[i] = r.GetOrCreate("Hans Mueller", fmt.Sprintf("<Person_%d>", i))
			} else {
				tokens[i] = r.GetOrCreate(fmt.Sprintf("Person %d", i), "<Person_1>")
			}
		}(i)
	}
	wg.Wait()

	// All concurrent registrations of the same value observed one token.
	shared := tokens[0]
	for i := 2; i < workers; i += 2 {
		assert.Equal(t, shared, tokens[i])
	}

	// The bijection holds: every value has a unique token.
	seen := make(map[string]string)
	for value, tok := range r.Snapshot() {
		prev, dup := seen[tok]
		require.Falsef(t, dup, "token %s assigned to both %q and %q", tok, prev, value)
		seen[tok] = value
	}
	assert.Equal(t, 1+workers/2, r.Len())
}

func TestTokenAndValueLookups(t *testing.T) {
	r := New()
	tok := r.GetOrCreate("Hans Mueller", "<Person_1>")

	got, ok := r.Token("Hans Mueller")
	require.True(t, ok)
	assert.Equal(t, tok, got)

	val, ok := r.Value(tok)
	require.True(t, ok)
	assert.Equal(t, "Hans Mueller", val)

	_, ok = r.Token("unknown")
	assert.False(t, ok)
	_, ok = r.Value("<Person_99>")
	assert.False(t, ok)
}

func TestRestoreAdvancesCounters(t *testing.T) {
	r := New()
	r.restore("Hans Mueller", "<Person_3>")

	// The next minted Person token must not collide with the restored one.
	tok := r.GetOrCreate("Marie Dupont", "<Person_1>")
	assert.Equal(t, "<Person_4>", tok)
}
