package entities

type GeoPoint struct {
	Lat float64
	Lng float64
}

func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

type Address struct {
	Line  string
	Point GeoPoint
}
