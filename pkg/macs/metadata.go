package macs

import "time"

// MetaData describes the camera and session an exposure came from. It is
// carried alongside the image and never altered by correction.
type MetaData struct {
	CamVendor   string `json:"camVendor"`
	CamModel    string `json:"camModel"`
	CamName     string `json:"camName"`
	CamSerial   string `json:"camSerial"`
	CamMAC      string `json:"camMAC"`
	CamIP       string `json:"camIP"`
	CamFirmware string `json:"camFirmware"`
	Comment     string `json:"comment"`
	Affix       string `json:"affix"`

	ImageID   int32 `json:"imageID"`
	TapCount  int32 `json:"tapCount"`
	ImageIDX  int32 `json:"imageIDX"`
	ExpTimeUS int32 `json:"expTimeUS"`
	TimeStamp int32 `json:"timeStamp"`
}

// PoseEvent is a single timestamped attitude/position sample from the
// navigation system. Angles are in degrees, position is WGS84 lat/lon with
// altitude in metres, velocities in m/s north/east/up.
type PoseEvent struct {
	Roll  float64   `json:"roll"`
	Pitch float64   `json:"pitch"`
	Yaw   float64   `json:"yaw"`
	Lat   float64   `json:"lat"`
	Lon   float64   `json:"lon"`
	Alt   float64   `json:"alt"`
	VelN  float64   `json:"veln"`
	VelE  float64   `json:"vele"`
	VelUp float64   `json:"velup"`
	Time  time.Time `json:"time"`
}

// IsValid reports whether the sample carries a real timestamp. A pose with
// a zero Time means no sample was available, even if other fields are set.
func (p PoseEvent) IsValid() bool {
	return !p.Time.IsZero()
}
