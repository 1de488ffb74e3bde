package model

// SettingsDocID is the id of the single organisation settings document.
const SettingsDocID = "app"

type Settings struct {
	ID         string `json:"id"`
	SchoolName string `json:"schoolName"`
	Theme      string `json:"theme"`
}

func (s Settings) EntityID() string { return SettingsDocID }
