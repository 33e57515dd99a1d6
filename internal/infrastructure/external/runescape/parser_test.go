package runescape

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormlight-clan/stormlight-hub/internal/domain/shared"
)

func TestParseStats_AllLinesBroken(t *testing.T) {
	_, err := ParseStats([]byte("<!DOCTYPE html>\n<html></html>"))
	assert.True(t, shared.IsMalformed(err))
}

func TestParseStats_JSONWithoutValues(t *testing.T) {
	_, err := ParseStats([]byte(`{"skillvalues":[]}`))
	assert.True(t, shared.IsNoData(err))

	_, err = ParseStats([]byte(`{"skillvalues":`))
	assert.True(t, shared.IsMalformed(err))
}

func TestParseStats_ShortPayloadKeepsWhatItHas(t *testing.T) {
	dto, err := ParseStats([]byte("12,99,13034431\n 40 , 85 , 3500000 "))
	require.NoError(t, err)

	records := SkillRecords(dto)
	assert.Len(t, records, 2)
	assert.EqualValues(t, 3500000, records["attack"].XP)
}

func TestParseActivityDate(t *testing.T) {
	ts, err := ParseActivityDate(" 23-Jul-2026 12:00 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 23, 12, 0, 0, 0, time.UTC), ts)

	_, err = ParseActivityDate("2026-07-23T12:00:00Z")
	assert.True(t, shared.IsMalformed(err))
}

func TestParseRoster_HeaderOnly(t *testing.T) {
	roster := ParseRoster([]byte("Clanmate, Clan Rank, Total XP, Kills\n"))
	assert.Empty(t, roster.Lines)
	assert.Zero(t, roster.Skipped)
}

func TestParseActivities_UnknownProfile(t *testing.T) {
	for _, code := range []string{ProfilePrivate, ProfileNotFound, ProfileNotMember} {
		_, err := ParseActivities([]byte(`{"error":"` + code + `"}`))
		assert.True(t, shared.IsNoData(err), code)
	}

	_, err := ParseActivities([]byte(`{"error":"SOMETHING_NEW"}`))
	assert.True(t, shared.IsMalformed(err))
	assert.False(t, shared.IsNoData(err))

	acts, err := ParseActivities([]byte(`{"activities":[]}`))
	require.NoError(t, err)
	assert.Empty(t, acts)
}
