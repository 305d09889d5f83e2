package entity

// City is reference data: a case-normalized city name, pre-loaded before
// any game runs.
type City struct {
	Id   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// UsedCity records that a city has already been played in a given
// session; (SessionId, CityId) is unique (I3, P3).
type UsedCity struct {
	SessionId int64 `json:"session_id" db:"session_id"`
	CityId    int64 `json:"city_id" db:"city_id"`
}
