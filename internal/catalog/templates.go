package catalog

import "github.com/ecoquest/ecoquest/internal/ecoquest"

var (
	sanFrancisco = ecoquest.Location{Lat: 37.7694, Lng: -122.4862, Address: "Golden Gate Park, San Francisco, CA"}
	missionSF    = ecoquest.Location{Lat: 37.7599, Lng: -122.4148, Address: "Mission District, San Francisco, CA"}
	london       = ecoquest.Location{Lat: 51.5073, Lng: -0.1657, Address: "Hyde Park, London, UK"}
	boroughLDN   = ecoquest.Location{Lat: 51.5055, Lng: -0.0910, Address: "Borough Market, London, UK"}
	berlin       = ecoquest.Location{Lat: 52.5145, Lng: 13.3501, Address: "Tiergarten, Berlin, Germany"}
)

var builtin = []Template{
	{
		Name:        "golden-gate-green",
		Theme:       ecoquest.ThemeUrbanNature,
		Title:       "Green Corners of Golden Gate",
		Description: "Discover the wild side of the city's biggest park.",
		Center:      sanFrancisco,
		Stops: []StopTemplate{
			{
				Title:       "Fern Gully",
				Description: "A shaded dell full of tree ferns.",
				Challenge:   ecoquest.PhotoPrompt("Photograph a fern frond unrolling."),
				Points:      50,
			},
			{
				Title:       "Stow Lake Shore",
				Description: "Look for waterfowl along the lake edge.",
				Challenge: ecoquest.Trivia("Which bird is most common on city lakes?",
					[]string{"Mallard", "Pelican", "Flamingo", "Albatross"}, "Mallard"),
				Points: 40,
			},
			{
				Title:       "Oak Woodland",
				Description: "An old stand of coast live oaks.",
				Challenge:   ecoquest.Task("Find three different kinds of leaves on the ground."),
				Points:      30,
			},
			{
				Title:       "Native Plant Garden",
				Description: "A garden planted with local species.",
				Challenge: ecoquest.Trivia("Why do native plants need less watering?",
					[]string{"They are adapted to local rainfall", "They are plastic", "They grow indoors"},
					"They are adapted to local rainfall"),
				Points: 40,
			},
		},
	},
	{
		Name:        "hyde-park-wild",
		Theme:       ecoquest.ThemeUrbanNature,
		Title:       "Hyde Park Wildlife Walk",
		Description: "Spot the wildlife thriving in central London.",
		Center:      london,
		Stops: []StopTemplate{
			{
				Title:       "The Serpentine",
				Description: "The park's long lake.",
				Challenge:   ecoquest.PhotoPrompt("Photograph a water bird on the Serpentine."),
				Points:      50,
			},
			{
				Title:       "Meadow Edge",
				Description: "Long grass left uncut for insects.",
				Challenge:   ecoquest.Task("Count the insects you can see in one minute."),
				Points:      30,
			},
			{
				Title:       "Old Plane Trees",
				Description: "London planes shed their bark to cope with pollution.",
				Challenge: ecoquest.Trivia("Why does the London plane shed its bark?",
					[]string{"To shed pollutants", "To attract birds", "It is diseased"}, "To shed pollutants"),
				Points: 40,
			},
		},
	},
	{
		Name:        "mission-thrift",
		Theme:       ecoquest.ThemeSustainableShopping,
		Title:       "Mission Thrift Trail",
		Description: "Shop second-hand and local in the Mission.",
		Center:      missionSF,
		Stops: []StopTemplate{
			{
				Title:       "Vintage Row",
				Description: "A strip of second-hand clothing stores.",
				Challenge:   ecoquest.PhotoPrompt("Photograph a pre-loved item you would wear."),
				Points:      40,
			},
			{
				Title:       "Refill Shop",
				Description: "Bring a container, fill it up.",
				Challenge: ecoquest.Trivia("What does a refill shop mainly reduce?",
					[]string{"Packaging waste", "Electricity use", "Water use"}, "Packaging waste"),
				Points: 40,
			},
			{
				Title:       "Farmers Market",
				Description: "Produce grown within a day's drive.",
				Challenge:   ecoquest.Task("Buy or find one vegetable grown locally."),
				Points:      30,
			},
		},
	},
	{
		Name:        "borough-local",
		Theme:       ecoquest.ThemeSustainableShopping,
		Title:       "Borough Local Produce",
		Description: "Trace where your food comes from.",
		Center:      boroughLDN,
		Stops: []StopTemplate{
			{
				Title:       "Market Stalls",
				Description: "Traders selling seasonal produce.",
				Challenge: ecoquest.Trivia("Which fruit is in season in the UK in autumn?",
					[]string{"Apples", "Mangoes", "Pineapples"}, "Apples"),
				Points: 40,
			},
			{
				Title:       "Zero-Packaging Bakery",
				Description: "Bread sold without plastic.",
				Challenge:   ecoquest.PhotoPrompt("Photograph something sold with no packaging."),
				Points:      30,
			},
			{
				Title:       "Repair Cafe",
				Description: "Volunteers fix what others throw away.",
				Challenge:   ecoquest.Task("Name one item you own that could be repaired instead of replaced."),
				Points:      30,
			},
		},
	},
	{
		Name:        "golden-gate-pollinators",
		Theme:       ecoquest.ThemePollinatorHunt,
		Title:       "Golden Gate Pollinator Patrol",
		Description: "Find the bees, butterflies and flowers that feed them.",
		Center:      sanFrancisco,
		Stops: []StopTemplate{
			{
				Title:       "Dahlia Garden",
				Description: "Big blooms that draw bees all summer.",
				Challenge:   ecoquest.PhotoPrompt("Photograph a bee on a flower."),
				Points:      50,
			},
			{
				Title:       "Butterfly Meadow",
				Description: "Milkweed and wildflowers.",
				Challenge: ecoquest.Trivia("Which plant do monarch caterpillars eat?",
					[]string{"Milkweed", "Oak", "Grass"}, "Milkweed"),
				Points: 40,
			},
			{
				Title:       "Bee Hotel",
				Description: "Nesting tubes for solitary bees.",
				Challenge:   ecoquest.Task("Count how many nesting tubes are occupied."),
				Points:      30,
			},
		},
	},
	{
		Name:        "tiergarten-pollinators",
		Theme:       ecoquest.ThemePollinatorHunt,
		Title:       "Tiergarten Pollinator Trail",
		Description: "Berlin's central park is alive with pollinators.",
		Center:      berlin,
		Stops: []StopTemplate{
			{
				Title:       "Rose Garden",
				Description: "Old roses with open centres.",
				Challenge:   ecoquest.PhotoPrompt("Photograph a hoverfly or bee on a rose."),
				Points:      50,
			},
			{
				Title:       "Wildflower Strip",
				Description: "Unmown verges seeded for insects.",
				Challenge: ecoquest.Trivia("Roughly how many bee species live in Germany?",
					[]string{"About 560", "About 20", "About 5000"}, "About 560"),
				Points: 40,
			},
			{
				Title:       "Lime Avenue",
				Description: "Linden trees hum with bees in June.",
				Challenge:   ecoquest.Task("Listen under a linden tree for one minute and describe what you hear."),
				Points:      30,
			},
			{
				Title:       "Pond Margin",
				Description: "Dragonflies patrol the reeds.",
				Challenge:   ecoquest.PhotoPrompt("Photograph an insect near the water."),
				Points:      40,
			},
		},
	},
	{
		Name:        "golden-gate-picnic",
		Theme:       ecoquest.ThemeZeroWastePicnic,
		Title:       "Zero-Waste Picnic in the Park",
		Description: "Plan and enjoy a picnic that leaves nothing behind.",
		Center:      sanFrancisco,
		Stops: []StopTemplate{
			{
				Title:       "Picnic Lawn",
				Description: "Spread out on the grass.",
				Challenge:   ecoquest.PhotoPrompt("Photograph your reusable picnic setup."),
				Points:      40,
			},
			{
				Title:       "Compost Station",
				Description: "Sort food scraps for compost.",
				Challenge: ecoquest.Trivia("Which item belongs in compost?",
					[]string{"Apple core", "Plastic fork", "Glass jar"}, "Apple core"),
				Points: 40,
			},
			{
				Title:       "Water Fountain",
				Description: "Refill instead of buying bottles.",
				Challenge:   ecoquest.Task("Refill a reusable bottle."),
				Points:      20,
			},
		},
	},
	{
		Name:        "hyde-park-picnic",
		Theme:       ecoquest.ThemeZeroWastePicnic,
		Title:       "Hyde Park Waste-Free Picnic",
		Description: "A picnic by the Serpentine without single-use plastic.",
		Center:      london,
		Stops: []StopTemplate{
			{
				Title:       "Lido Lawn",
				Description: "A sunny spot by the water.",
				Challenge:   ecoquest.PhotoPrompt("Photograph food packed without plastic."),
				Points:      40,
			},
			{
				Title:       "Recycling Point",
				Description: "Separate bins for each material.",
				Challenge: ecoquest.Trivia("Which bin takes a clean aluminium can?",
					[]string{"Mixed recycling", "General waste", "Food waste"}, "Mixed recycling"),
				Points: 30,
			},
			{
				Title:       "Litter Sweep",
				Description: "Leave the lawn cleaner than you found it.",
				Challenge:   ecoquest.Task("Collect five pieces of litter and bin them correctly."),
				Points:      30,
			},
		},
	},
}
