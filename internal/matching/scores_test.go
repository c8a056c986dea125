package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
	dt "github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain/domaintest"
)

func TestDistribution(t *testing.T) {
	buckets := Distribution([]int{0, 1, 5, 5, 10, 11, -3})
	require.Len(t, buckets, 10)
	for i, b := range buckets {
		assert.Equal(t, i+1, b.Score)
	}
	assert.Equal(t, 1, buckets[0].Count)
	assert.Equal(t, 2, buckets[4].Count)
	assert.Equal(t, 1, buckets[9].Count)

	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	assert.Equal(t, 4, total, "0, 11 and -3 are dropped")

	assert.Len(t, Distribution(nil), 10)
}

func TestCompare(t *testing.T) {
	records := dt.Records(
		dt.Intake(dt.Base, dt.IntakeClient("", mobile), dt.Pre(4)),
		dt.Intake(dt.Base, dt.IntakeClient("Nobody", ""), dt.Pre(7)),
		dt.Intake(dt.Base),
		dt.Feedback(dt.Base.Add(2*time.Hour), dt.FeedbackClient("", mobile), dt.Post(8)),
		dt.Feedback(dt.Base.Add(3*time.Hour), dt.Post(9)),
	)

	c := Compare(records, New(domain.MatchingConfig{}))
	assert.Equal(t, 5.5, c.AvgPre)
	assert.Equal(t, 8.5, c.AvgPost)
	assert.Equal(t, 4.0, c.AvgImprovement)
	assert.Equal(t, 2, c.PreScoresCount)
	assert.Equal(t, 2, c.PostScoresCount)
	assert.Equal(t, 1, c.MatchedPairsCount)
	assert.Equal(t, 50, c.MatchQuality())
	assert.Equal(t, 1, c.Distribution.Pre[3].Count)
	assert.Equal(t, 1, c.Distribution.Post[8].Count)
	require.Len(t, c.Pairs, 1)
}

func TestCompare_Empty(t *testing.T) {
	c := Compare(nil, New(domain.MatchingConfig{}))
	assert.Equal(t, 0.0, c.AvgPre)
	assert.Equal(t, 0, c.MatchQuality())
	assert.Len(t, c.Distribution.Pre, 10)
	assert.NotNil(t, c.Pairs)
}
