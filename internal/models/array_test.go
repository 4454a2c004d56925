package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringArrayScan(t *testing.T) {
	var arr StringArray
	require.NoError(t, arr.Scan(`{weibo,zhihu,baidu}`))
	assert.Equal(t, StringArray{"weibo", "zhihu", "baidu"}, arr)

	require.NoError(t, arr.Scan(`{"rss","hot_topics"}`))
	assert.Equal(t, StringArray{"rss", "hot_topics"}, arr)

	require.NoError(t, arr.Scan("{}"))
	assert.Empty(t, arr)

	require.NoError(t, arr.Scan(nil))
	assert.Empty(t, arr)

	require.NoError(t, arr.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, StringArray{"a", "b"}, arr)

	assert.Error(t, arr.Scan(42))
}

func TestStringArrayValue(t *testing.T) {
	v, err := StringArray{"weibo", "zhihu"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"weibo","zhihu"}`, v)

	v, err = StringArray{}.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)
}

func TestStringArrayContains(t *testing.T) {
	arr := StringArray{"weibo", "zhihu"}
	assert.True(t, arr.Contains("weibo"))
	assert.False(t, arr.Contains("douyin"))
	assert.False(t, StringArray(nil).Contains("weibo"))
}

func TestSyncDetailListRoundTrip(t *testing.T) {
	details := SyncDetailList{
		{FeedID: 1, FeedTitle: "feed one", Status: SyncSuccess, ArticlesCount: 3, SyncTime: 1.5},
		{FeedID: 2, Status: SyncFailed, Error: "timeout"},
	}

	raw, err := details.Value()
	require.NoError(t, err)

	var decoded SyncDetailList
	require.NoError(t, decoded.Scan(raw))
	assert.Equal(t, details, decoded)

	var empty SyncDetailList
	require.NoError(t, empty.Scan(nil))
	assert.Empty(t, empty)

	assert.Error(t, decoded.Scan(42))
}
