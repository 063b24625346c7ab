package preference

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gorm.io/datatypes"
)

func TestIsSubscribed(t *testing.T) {
	prefs := Map{
		"EURUSD": {Notifications: true, Volume: false, Favorite: true},
		"GBPUSD": {Notifications: false, Volume: true},
	}

	assert.True(t, IsSubscribed(prefs, "EURUSD", ChannelNotifications))
	assert.False(t, IsSubscribed(prefs, "EURUSD", ChannelVolume))
	assert.False(t, IsSubscribed(prefs, "GBPUSD", ChannelNotifications))
	assert.True(t, IsSubscribed(prefs, "GBPUSD", ChannelVolume))
}

func TestIsSubscribedMissingInstrument(t *testing.T) {
	prefs := Map{"EURUSD": {Notifications: true}}

	assert.False(t, IsSubscribed(prefs, "USDJPY", ChannelNotifications))
	assert.False(t, IsSubscribed(nil, "USDJPY", ChannelNotifications))
}

func TestIsSubscribedUnknownChannel(t *testing.T) {
	prefs := Map{"EURUSD": {Notifications: true, Volume: true}}

	assert.False(t, IsSubscribed(prefs, "EURUSD", Channel("favorites")))
}

func TestParseMap(t *testing.T) {
	raw := datatypes.JSON(`{"EURUSD":{"notifications":true,"volume":true,"favorite":false}}`)
	prefs := ParseMap(raw)

	assert.True(t, IsSubscribed(prefs, "EURUSD", ChannelNotifications))
	assert.True(t, IsSubscribed(prefs, "EURUSD", ChannelVolume))
}

func TestParseMapMalformed(t *testing.T) {
	assert.Equal(t, Map{}, ParseMap(nil))
	assert.Equal(t, Map{}, ParseMap(datatypes.JSON(`not json`)))
	assert.Equal(t, Map{}, ParseMap(datatypes.JSON(`null`)))
}
