package txc

type Route struct {
	ID                   string `xml:"id,attr"`
	CreationDateTime     string `xml:",attr"`
	ModificationDateTime string `xml:",attr"`

	PrivateCode     string
	Description     string
	RouteSectionRef []string
}

type RouteSection struct {
	ID string `xml:"id,attr"`

	RouteLinks []RouteLink `xml:"RouteLink"`
}

func (rs *RouteSection) GetRouteLink(id string) *RouteLink {
	for i, routeLink := range rs.RouteLinks {
		if routeLink.ID == id {
			return &rs.RouteLinks[i]
		}
	}

	return nil
}

type RouteLink struct {
	ID                   string `xml:"id,attr"`
	CreationDateTime     string `xml:",attr"`
	ModificationDateTime string `xml:",attr"`

	FromStop string `xml:"From>StopPointRef"`
	ToStop   string `xml:"To>StopPointRef"`
	Distance int

	Track []Location `xml:"Track>Mapping>Location"`
}
