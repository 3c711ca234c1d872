package model

import (
	"fmt"
	"strings"
	"unicode"
)

type ChannelKind string

const (
	ChannelHotelLobby ChannelKind = "hotel_lobby"
	ChannelCityLobby  ChannelKind = "city_lobby"
	ChannelPrivate    ChannelKind = "private"
)

const (
	hotelLobbyPrefix = "lobby:hotel:"
	cityLobbyPrefix  = "lobby:city:"
	privatePrefix    = "dm:"
)

// ChannelID identifies a hotel lobby, a city lobby or a private pair channel.
// Its kind is derived from the identifier itself.
type ChannelID string

func HotelLobby(venueID string) ChannelID {
	return ChannelID(hotelLobbyPrefix + venueID)
}

func CityLobby(city string) ChannelID {
	return ChannelID(cityLobbyPrefix + CitySlug(city))
}

// PrivateChannel returns the pair channel of two users, independent of order.
func PrivateChannel(a, b string) ChannelID {
	if b < a {
		a, b = b, a
	}
	return ChannelID(privatePrefix + a + ":" + b)
}

func ParseChannelID(raw string) (ChannelID, error) {
	id := ChannelID(raw)
	if _, err := id.parts(); err != nil {
		return "", err
	}
	return id, nil
}

func (c ChannelID) String() string {
	return string(c)
}

func (c ChannelID) Kind() ChannelKind {
	switch {
	case strings.HasPrefix(string(c), hotelLobbyPrefix):
		return ChannelHotelLobby
	case strings.HasPrefix(string(c), cityLobbyPrefix):
		return ChannelCityLobby
	case strings.HasPrefix(string(c), privatePrefix):
		return ChannelPrivate
	default:
		return ""
	}
}

func (c ChannelID) IsLobby() bool {
	k := c.Kind()
	return k == ChannelHotelLobby || k == ChannelCityLobby
}

// VenueID returns the venue of a hotel lobby, empty otherwise.
func (c ChannelID) VenueID() string {
	if c.Kind() != ChannelHotelLobby {
		return ""
	}
	return strings.TrimPrefix(string(c), hotelLobbyPrefix)
}

// CitySlug returns the city of a city lobby, empty otherwise.
func (c ChannelID) CitySlug() string {
	if c.Kind() != ChannelCityLobby {
		return ""
	}
	return strings.TrimPrefix(string(c), cityLobbyPrefix)
}

// Members returns the two users of a private channel.
func (c ChannelID) Members() (string, string, bool) {
	if c.Kind() != ChannelPrivate {
		return "", "", false
	}
	parts, err := c.parts()
	if err != nil {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (c ChannelID) Includes(userID string) bool {
	a, b, ok := c.Members()
	return ok && (a == userID || b == userID)
}

func (c ChannelID) parts() ([]string, error) {
	s := string(c)
	switch c.Kind() {
	case ChannelHotelLobby:
		if v := strings.TrimPrefix(s, hotelLobbyPrefix); v != "" && !strings.ContainsAny(v, ":|") {
			return []string{v}, nil
		}
	case ChannelCityLobby:
		if v := strings.TrimPrefix(s, cityLobbyPrefix); v != "" && v == CitySlug(v) {
			return []string{v}, nil
		}
	case ChannelPrivate:
		members := strings.Split(strings.TrimPrefix(s, privatePrefix), ":")
		if len(members) == 2 && members[0] != "" && members[1] != "" && members[0] < members[1] {
			return members, nil
		}
	}
	return nil, fmt.Errorf("invalid channel id %q", s)
}

// CitySlug lowercases a city name and collapses everything that is not a
// letter or digit into single dashes.
func CitySlug(city string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(city)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
