package invitationapi

import (
	"encoding/json"

	"vows/cmd/internal/invitation"
	"vows/cmd/internal/rsvp"
)

// saveRequest is the body of POST/PUT /api/invitations. Every field is
// optional on the wire: absent scalars leave the stored value untouched,
// present-but-empty clears nullable ones, and an absent child array leaves
// that collection alone while a present one replaces it wholesale.
type saveRequest struct {
	Plan         *string `json:"plan"`
	TemplateID   *string `json:"template_id"`
	Partner1Name *string `json:"partner1_name"`
	Partner2Name *string `json:"partner2_name"`
	WeddingDate  *string `json:"wedding_date"`
	WeddingTime  *string `json:"wedding_time"`
	Headline     *string `json:"headline"`
	Dresscode    *string `json:"dresscode"`

	DresscodeColors json.RawMessage `json:"dresscode_colors"`
	RSVPConfig      json.RawMessage `json:"rsvp_config"`
	Styling         json.RawMessage `json:"styling"`
	GiftConfig      json.RawMessage `json:"gift_config"`

	Locations *[]locationRequest `json:"locations"`
	Timeline  *[]timelineRequest `json:"timeline"`
}

type locationRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Time    string `json:"time"`
	Type    string `json:"type"`
	Icon    string `json:"icon"`
	Notes   string `json:"notes"`
	MapsURL string `json:"maps_url"`
	Order   int    `json:"order"`
}

type timelineRequest struct {
	Title       string `json:"title"`
	Time        string `json:"time"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	IconType    string `json:"icon_type"`
	Order       int    `json:"order"`
}

type publishRequest struct {
	Slug string `json:"slug"`
}

type listResponse struct {
	Invitations []invitation.Invitation `json:"invitations"`
}

// invitationDetail is the single-invitation GET payload: the invitation
// flattened, plus its guest responses newest first.
type invitationDetail struct {
	invitation.Invitation
	RSVPs []rsvp.Response `json:"rsvps"`
}

func (req saveRequest) toUpdate() invitation.Update {
	up := invitation.Update{
		Plan:         req.Plan,
		TemplateID:   req.TemplateID,
		Partner1Name: req.Partner1Name,
		Partner2Name: req.Partner2Name,
		WeddingDate:  req.WeddingDate,
		WeddingTime:  req.WeddingTime,
		Headline:     req.Headline,
		Dresscode:    req.Dresscode,

		DresscodeColors: req.DresscodeColors,
		RSVPConfig:      req.RSVPConfig,
		Styling:         req.Styling,
		GiftConfig:      req.GiftConfig,
	}

	if req.Locations != nil {
		locs := make([]invitation.ChildLocation, 0, len(*req.Locations))
		for _, l := range *req.Locations {
			locs = append(locs, invitation.ChildLocation{
				Name:    l.Name,
				Address: l.Address,
				Time:    l.Time,
				Type:    l.Type,
				Icon:    l.Icon,
				Notes:   l.Notes,
				MapsURL: l.MapsURL,
				Order:   l.Order,
			})
		}
		up.Locations = &locs
	}

	if req.Timeline != nil {
		items := make([]invitation.ChildTimelineItem, 0, len(*req.Timeline))
		for _, it := range *req.Timeline {
			items = append(items, invitation.ChildTimelineItem{
				Title:       it.Title,
				Time:        it.Time,
				Description: it.Description,
				Icon:        it.Icon,
				IconType:    it.IconType,
				Order:       it.Order,
			})
		}
		up.Timeline = &items
	}

	return up
}
