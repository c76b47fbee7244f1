// Package seed holds the built-in sample corpus used to populate an empty
// store on first start.
package seed

import (
	"context"

	"github.com/localrivet/latentfs/internal/organizer"
	"github.com/localrivet/latentfs/internal/util"
)

// Source is the metadata source of every seeded item.
const Source = "mock_data"

// Sample is one seeded text with its topic.
type Sample struct {
	Text     string
	Category string
}

var samples = []Sample{
	{"Infrared telescopes look through cosmic dust to galaxies that formed a few hundred million years after the Big Bang.", "Space"},
	{"Settling Mars means solving radiation exposure, thin resources and the isolation of crews far from Earth.", "Space"},
	{"Nothing escapes a black hole once it crosses the event horizon, not even light, and radio telescopes have now imaged one.", "Space"},
	{"The space station circles the planet sixteen times a day while astronauts run microgravity experiments.", "Space"},

	{"A sourdough starter is a living culture of wild yeast that has to be fed flour and water to keep the bread rising.", "Cooking"},
	{"Searing meat triggers the Maillard reaction, where heated sugars and proteins create deep browned flavors.", "Cooking"},
	{"Tonkotsu ramen broth simmers pork bones for half a day until the collagen turns it creamy.", "Cooking"},
	{"Good knife skills start with a pinch grip on the blade and a sharp edge that needs little force.", "Cooking"},

	{"Hooks let functional components hold state and run effects without writing classes.", "Coding"},
	{"Containers bundle an application with its dependencies so it behaves the same in every environment.", "Coding"},
	{"Cross-validation guards a machine learning model against overfitting by scoring it on held-out data.", "Coding"},
	{"Feature branches and pull requests let a team review code before it is merged into the main branch.", "Coding"},

	{"The western Roman Empire fell in 476 after decades of economic decline and military defeat.", "History"},
	{"Steam power and mechanized looms drove the industrial revolution that began in eighteenth century Britain.", "History"},
	{"In 1969 two astronauts walked on the moon while a third orbited above in the command module.", "History"},

	{"Compound interest rewards saving early because the interest itself starts earning interest.", "Finance"},
	{"Diversifying a portfolio across stocks, bonds and regions lowers risk without giving up much return.", "Finance"},
	{"Cryptocurrency runs on a blockchain ledger with no central bank, and its prices swing sharply.", "Finance"},

	{"Analytics pushed basketball teams toward three-point shots and layups instead of mid-range jumpers.", "Sports"},
	{"Marathon training builds endurance with long runs, speed work and careful recovery between sessions.", "Sports"},
}

// Samples returns a copy of the sample corpus.
func Samples() []Sample {
	out := make([]Sample, len(samples))
	copy(out, samples)
	return out
}

// Documents returns the corpus as ingestable documents with stable ids.
func Documents() []organizer.Document {
	docs := make([]organizer.Document, len(samples))
	for i, s := range samples {
		docs[i] = organizer.Document{
			ID:   util.SeedItemID(i),
			Text: s.Text,
			Metadata: map[string]string{
				"category": s.Category,
				"source":   Source,
			},
		}
	}
	return docs
}

// Populate ingests the corpus through org. It returns the new ids.
func Populate(ctx context.Context, org *organizer.Organizer) ([]string, error) {
	return org.IngestDocuments(ctx, Documents())
}
