package tokens

import "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/diet"

// Vocabulary maps each token category to the lowercase phrases that carry it.
// A phrase may contain spaces and punctuation; it must appear under at most
// one category.
type Vocabulary map[diet.TokenCategory][]string

// DefaultVocabulary returns the built-in word lists. The returned map is a
// fresh copy and may be extended by the caller.
func DefaultVocabulary() Vocabulary {
	v := make(Vocabulary, len(defaultVocabulary))
	for tc, phrases := range defaultVocabulary {
		v[tc] = append([]string(nil), phrases...)
	}
	return v
}

var defaultVocabulary = Vocabulary{
	// Longer phrases that would otherwise expose a misleading substring,
	// e.g. "ham" in "graham" or "pie" in "piece".
	diet.Block: {
		"box", "champagne", "graham", "original", "piece",
		"spray", "steel", "tray", "virgin",
	},
	diet.NullifiesOmni: {
		"meat substitute", "meatless", "vegetarian", "veggie",
	},
	diet.NullifiesOmniAndVegetarian: {
		"plant based", "plant-based", "vegan",
	},
	diet.SuggestsVegan: {
		"agave", "almond", "almond milk", "amaranth",
		"apple", "apple butter", "apricot", "artichoke", "asparagus", "aubergine", "avocado",
		"banana", "barley", "basil", "bean", "beet",
		"berries", "berry", "beer", "black russian", "bread",
		"broccoli", "bulgur", "bruschetta", "butternut",
		"cabbage", "cactus", "canola", "cantaloupe", "carrot", "cashew", "celery",
		"chard", "cherry", "cherries", "chive", "cider", "cilantro",
		"cocoa", "cocoa butter", "coconut milk", "coffee", "cola", "collard", "corn", "couscous",
		"cream of tartar", "cress", "cucumber", "currant",
		"daiquiri", "dasheen", "date", "dill",
		"edamame", "eggplant",
		"energy drink",
		"falafel", "fennel", "fig", "flour", "flower", "fries", "fruit",
		"jam", "juice",
		"garlic", "gimlet", "gin", "ginger",
		"grain", "grape", "greens", "guacamole", "guava", "gum",
		"hard candy", "hummus",
		"kale", "ketchup", "kidney bean", "kohlrabi", "kumquat",
		"leaf", "leaves", "leek", "lemon", "lentil", "lettuce",
		"lime", "liqueur", "luffa", "lychee",
		"macadamia", "malt", "mango",
		"margarine", "margarita", "marmalade", "martini", "melon",
		"millet", "mimosa", "mint", "miso", "molasses", "mushroom", "mustard",
		"natto", "nectarine", "noodle", "nut", "nut butter", "nutmeg",
		"oat", "oat milk", "old fashioned", "olive", "onion", "orange", "oyster mushroom",
		"pakora", "papaya", "parsley", "parsnip", "pasta",
		"pea", "peach", "peanut butter", "pecan", "peel", "pepper", "persimmon",
		"pickle", "pigeon pea", "pimiento", "pita",
		"plant", "plantain", "plum", "pomegranate", "potato",
		"pretzel", "prune", "pumpkin",
		"quinoa",
		"radicchio", "radish", "raisin", "rhubarb", "rice", "rice cake",
		"roll", "root", "rum",
		"sauerkraut", "screwdriver", "seed", "seitan", "sesame", "shoot",
		"soy", "soy milk", "spinach",
		"soda", "soft drink", "sports drink", "sprout", "squash", "sugar", "syrup",
		"tabbouleh", "tahini", "tamarind", "tangerine", "tannier", "tea", "tequila",
		"tempeh", "tofu", "tomato", "tortilla", "truffle", "turnip",
		"vegetable", "vinegar", "vodka",
		"wasabi", "water", "weed", "wheat", "whiskey",
		"yam", "yeast",
		"zucchini", "zwieback",
	},
	diet.SuggestsVeganOrVegetarian: {
		"bar",
		"candy, nfs", "chutney", "cocktail, nfs", "cracker", "crouton",
		"dip",
		"formula",
		"nougat",
		"pesto", "pop", "popcorn", "porridge",
		"scone", "strudel",
	},
	diet.SuggestsVegetarian: {
		"baklava", "banana split", "biscuit", "borscht", "butter",
		"cake", "cappuccino", "caramel", "chocolate", "cheese", "cookie",
		"cream", "creme", "crepe", "croissant", "custard",
		"egg",
		"frost", "french toast", "fudge",
		"gelato",
		"honey",
		"icing",
		"kefir",
		"latte",
		"macchiato", "mayonnaise", "milk", "mocha", "mousse", "mozzarella", "muffin",
		"paneer", "pastry", "pie", "pizza", "praline", "pudding",
		"ranch",
		"tiramisu", "toffee", "trifle", "tzatziki",
		"waffle", "whey", "whipped", "white russian",
		"yogurt",
	},
	diet.SuggestsVeganOrOmni: {
		"broth, nfs", "chili, nfs",
	},
	diet.SuggestsVeganVegetarianOrOmni: {
		"dumpling",
		"fat, nfs",
		"jelly",
		"kimchi",
		"ravioli, ns",
		"sandwich, nfs", "soup, nfs", "stew, nfs", "sushi, nfs",
		"wine",
	},
	diet.SuggestsVegetarianOrOmni: {
		"omelet", "quiche",
	},
	diet.SuggestsOmni: {
		"adobo", "anchovy", "animal",
		"bacon", "barracuda", "bass", "bear", "beaver", "beef",
		"bison", "bologna", "brain", "burger",
		"caribou", "carp", "casserole", "chicken", "chorizo", "clam",
		"cobbler", "cod", "crab", "croaker",
		"deer", "dog", "dove", "duck",
		"eel",
		"fish", "flounder", "frog",
		"gelatin", "gizzard", "goat", "goulash", "gravy", "ground hog",
		"haddock", "halibut", "herring", "ham", "jerky",
		"kidney",
		"lamb", "lard", "liver", "lobster",
		"mackerel", "marshmallow", "matzo", "meat", "meringue",
		"moose", "mortadella", "mullet", "mussel",
		"nacho",
		"octopus", "okra", "opossum", "ostrich", "oyster", "ox",
		"pad thai", "pastrami", "pepperoni", "pepperpot", "perch",
		"pig", "pike", "pheasant", "porgy", "pork", "pot roast", "potato skins",
		"quail",
		"rabbit", "raccoon", "ray", "roe",
		"salami", "salmon", "sardine", "sausage", "scallop", "seafood",
		"shark", "shrimp", "snail", "souffle", "squid", "squirrel",
		"steak", "sturgeon",
		"thuringer", "tilapia", "tongue", "tripe", "trout",
		"tuna", "turkey", "turtle",
		"veal", "venison",
		"whiting", "wurst",
	},
}
