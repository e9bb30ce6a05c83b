package mongostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"git.home.luguber.info/inful/seriesgen/internal/content"
)

func TestQueries(t *testing.T) {
	assert.Equal(t, bson.M{}, groupQuery(content.Filter{}))

	minStatus := 2
	f := content.Filter{Names: []string{"A"}, MinStatus: &minStatus}
	assert.Equal(t, bson.M{
		"name":          bson.M{"$in": []string{"A"}},
		"config.status": bson.M{"$gte": 2},
	}, groupQuery(f))

	assert.Equal(t, bson.M{
		"series":       bson.M{"$in": []string{"g1"}},
		"meta.deleted": bson.M{"$ne": true},
		"meta.status":  bson.M{"$gte": 2},
	}, recordQuery([]string{"g1"}, f))
}

func TestRecordByID(t *testing.T) {
	oid := primitive.NewObjectID()
	q := recordByID(oid.Hex())
	assert.Equal(t, bson.M{"_id": bson.M{"$in": bson.A{oid, oid.Hex()}}}, q)
	assert.Equal(t, bson.M{"_id": "slug"}, recordByID("slug"))
}

func TestDecodeDocuments(t *testing.T) {
	oid := primitive.NewObjectID()
	raw, err := bson.Marshal(bson.M{
		"_id":    oid,
		"series": "g1",
		"uuid":   "u1",
		"meta": bson.M{
			"title":  "Intro",
			"volume": int32(2),
			"blog":   bson.M{"published_date": int64(10), "pinned": true},
		},
		"content": "hello",
	})
	require.NoError(t, err)

	var d recordDoc
	require.NoError(t, bson.Unmarshal(raw, &d))
	r := d.record()

	assert.Equal(t, oid.Hex(), r.ID)
	assert.Equal(t, "g1", r.GroupID)
	assert.Equal(t, "hello", r.Body)
	assert.Equal(t, "Intro", r.Meta.Title())
	assert.True(t, r.Meta.IsBlog())
	assert.True(t, r.Meta.Blog().Pinned)
	_, isMap := r.Meta["blog"].(map[string]any)
	assert.True(t, isMap)

	fixed := false
	graw, err := bson.Marshal(bson.M{
		"_id":  "s1",
		"name": "Long Series",
		"config": bson.M{
			"hierarchy":         bson.A{"volume", "chapter"},
			"header-url":        "/h.jpg",
			"fixed_nav_entries": fixed,
			"salt":              "v2",
		},
	})
	require.NoError(t, err)
	var gd groupDoc
	require.NoError(t, bson.Unmarshal(graw, &gd))
	g := gd.group()
	assert.Equal(t, "s1", g.ID)
	assert.Equal(t, "long-series", g.PathPart)
	assert.Equal(t, []string{"volume", "chapter"}, g.Hierarchy)
	assert.False(t, g.FixedNavEntries)
	assert.Equal(t, "v2", g.Salt)
}
