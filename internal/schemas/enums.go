package schemas

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Mood and Weather are stored and serialized as their numeric codes. Clients
// historically sent either the code or the name in any casing, so the parse
// functions accept both and normalize to the code.

type Mood int

const (
	MoodNormal Mood = iota + 1
	MoodSad
	MoodSoso
	MoodAngry
	MoodFunny
	MoodHappy
)

type Weather int

const (
	WeatherSun Weather = iota + 1
	WeatherRain
	WeatherSnow
	WeatherStorm
	WeatherCloud
	WeatherWind
)

var ErrInvalidEnum = errors.New("invalid enum value")

var moodNames = map[string]Mood{
	"NORMAL": MoodNormal,
	"SAD":    MoodSad,
	"SOSO":   MoodSoso,
	"ANGRY":  MoodAngry,
	"FUNNY":  MoodFunny,
	"HAPPY":  MoodHappy,
}

var weatherNames = map[string]Weather{
	"SUN":   WeatherSun,
	"RAIN":  WeatherRain,
	"SNOW":  WeatherSnow,
	"STORM": WeatherStorm,
	"CLOUD": WeatherCloud,
	"WIND":  WeatherWind,
}

// ParseMood accepts a numeric code (1-6) or a case-insensitive mood name.
func ParseMood(value string) (Mood, error) {
	if code, err := strconv.Atoi(value); err == nil {
		mood := Mood(code)
		if mood < MoodNormal || mood > MoodHappy {
			return 0, ErrInvalidEnum
		}
		return mood, nil
	}

	if mood, ok := moodNames[strings.ToUpper(strings.TrimSpace(value))]; ok {
		return mood, nil
	}
	return 0, ErrInvalidEnum
}

// ParseWeather accepts a numeric code (1-6) or a case-insensitive weather name.
func ParseWeather(value string) (Weather, error) {
	if code, err := strconv.Atoi(value); err == nil {
		weather := Weather(code)
		if weather < WeatherSun || weather > WeatherWind {
			return 0, ErrInvalidEnum
		}
		return weather, nil
	}

	if weather, ok := weatherNames[strings.ToUpper(strings.TrimSpace(value))]; ok {
		return weather, nil
	}
	return 0, ErrInvalidEnum
}

// EnumValue carries a mood or weather value through JSON decoding without
// committing to a representation. The raw token is kept as a string and parsed
// by ParseMood/ParseWeather after binding.
type EnumValue string

func (e *EnumValue) UnmarshalJSON(data []byte) error {
	// Accept both a JSON number and a JSON string
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*e = EnumValue(asString)
		return nil
	}

	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err != nil {
		return err
	}
	*e = EnumValue(asNumber.String())
	return nil
}

func (e EnumValue) String() string {
	return string(e)
}
