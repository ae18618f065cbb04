package user

// ProfileResponse adds derived flags the client uses to shape its menus.
type ProfileResponse struct {
	*Profile
	IsAdmin bool `json:"is_admin"`
}

func ToResponse(p *Profile) ProfileResponse {
	return ProfileResponse{Profile: p, IsAdmin: p.IsAdmin()}
}
