package sqlsafe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askdb/askdb/internal/testutil"
)

func TestCheckColumnsAllKnown(t *testing.T) {
	snap := testutil.SampleSnapshot()

	unknown := CheckColumns("SELECT ProductID, ProductName FROM Products WHERE Price > 10", snap)
	assert.Empty(t, unknown)
}

func TestCheckColumnsReportsUnknown(t *testing.T) {
	snap := testutil.SampleSnapshot()

	unknown := CheckColumns("SELECT ProductNam FROM Products", snap)
	assert.Equal(t, []string{"ProductNam"}, unknown)
}

func TestCheckColumnsQualifiedNames(t *testing.T) {
	snap := testutil.SampleSnapshot()

	unknown := CheckColumns("SELECT Products.ProductName FROM Products WHERE Products.Price > 5", snap)
	assert.Empty(t, unknown)
}

func TestCheckColumnsIgnoresStringLiterals(t *testing.T) {
	snap := testutil.SampleSnapshot()

	unknown := CheckColumns("SELECT ProductID FROM Products WHERE Category = 'NotAColumn Name'", snap)
	assert.Empty(t, unknown)
}

func TestCheckColumnsIgnoresFunctions(t *testing.T) {
	snap := testutil.SampleSnapshot()

	unknown := CheckColumns("SELECT COUNT(ProductID), MAX(Price) FROM Products GROUP BY Category", snap)
	assert.Empty(t, unknown)
}

func TestCheckColumnsReportsAliases(t *testing.T) {
	snap := testutil.SampleSnapshot()

	// Result aliases are indistinguishable from column references here;
	// the caller treats the report as a warning, not a failure.
	unknown := CheckColumns("SELECT SUM(TotalAmount) AS total FROM Orders", snap)
	assert.Equal(t, []string{"total"}, unknown)
}

func TestCheckColumnsDeduplicates(t *testing.T) {
	snap := testutil.SampleSnapshot()

	unknown := CheckColumns("SELECT Mystery, Mystery FROM Products", snap)
	assert.Equal(t, []string{"Mystery"}, unknown)
}
