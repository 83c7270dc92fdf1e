package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCleanName(t *testing.T) {
	assert.Equal(t, "John Mcdonald", CleanName("  john   mcdonald.. "))
	assert.Equal(t, "Jane Doe", CleanName("JANE DOE"))
	assert.Equal(t, "O'Brien", CleanName("o'brien"))
	assert.Equal(t, "Anne-Marie Smith", CleanName("anne-marie  smith"))
	assert.Equal(t, "José García", CleanName("josé? garcía!"))
	// Underscores are word characters and survive cleaning.
	assert.Equal(t, "Jane_Doe Smith", CleanName("jane_doe smith"))
	assert.Empty(t, CleanName("   "))
}

func TestCleanName_KeepsUnicodeLetters(t *testing.T) {
	assert.Equal(t, "René Martin", CleanName("rené martin"))
}

func TestCleanEmail(t *testing.T) {
	assert.Equal(t, "foo@bar.com", CleanEmail("Foo@Bar.COM"))
	assert.Equal(t, "a.b+c@sub.example.org", CleanEmail(" a.b+c@sub.example.org "))
	assert.Empty(t, CleanEmail("not-an-email"))
	assert.Empty(t, CleanEmail("missing@tld"))
	assert.Empty(t, CleanEmail(""))
}

func TestCleanURL(t *testing.T) {
	assert.Equal(t, "https://www.linkedin.com/in/jane", CleanURL("https://www.linkedin.com/in/jane"))
	assert.Equal(t, "http://example.com", CleanURL("http://example.com"))
	// Bare hostnames get an https prefix retried once.
	assert.Equal(t, "https://linkedin.com/in/jane", CleanURL("linkedin.com/in/jane"))
	assert.Empty(t, CleanURL("not a url"))
	assert.Empty(t, CleanURL("ftp://example.com"))
	assert.Empty(t, CleanURL(""))
}

func TestCleanContent(t *testing.T) {
	assert.Equal(t, "a b", CleanContent("a    b"))
	assert.Equal(t, "para one\n\npara two", CleanContent("para one\n\n\n\n\npara two"))
	assert.Equal(t, "clean", CleanContent("cl\x00ea\x1fn"))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "one line text", CleanText(" one line\n\ntext "))
}

func TestParseTimestamp(t *testing.T) {
	got, ok := ParseTimestamp("2024-01-02 10:30:00")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC), got)

	got, ok = ParseTimestamp("2024-01-02T10:30:00Z")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC), got)

	got, ok = ParseTimestamp("02 Jan 2024")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got)

	_, ok = ParseTimestamp("sometime last week")
	assert.False(t, ok)

	_, ok = ParseTimestamp("")
	assert.False(t, ok)
}
