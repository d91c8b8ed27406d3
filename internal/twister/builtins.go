package twister

// builtins is the curated starter set. IDs are stable — attempts stored in
// the database reference them.
var builtins = []TongueTwister{
	{ID: 1, Text: "She sells seashells by the seashore", Difficulty: Easy, WordCount: 6},
	{ID: 2, Text: "Rubber baby buggy bumpers", Difficulty: Easy, WordCount: 4},
	{ID: 3, Text: "Unique New York", Difficulty: Easy, WordCount: 3},
	{ID: 4, Text: "Toy boat toy boat", Difficulty: Easy, WordCount: 4},
	{ID: 5, Text: "Red lorry yellow lorry", Difficulty: Easy, WordCount: 4},
	{ID: 6, Text: "Greek grapes Greek grapes", Difficulty: Easy, WordCount: 4},
	{ID: 7, Text: "Which witch is which", Difficulty: Easy, WordCount: 4},
	{ID: 8, Text: "Peter Piper picked a peck of pickled peppers", Difficulty: Medium, WordCount: 8},
	{ID: 9, Text: "How much wood would a woodchuck chuck", Difficulty: Medium, WordCount: 7},
	{ID: 10, Text: "Red leather yellow leather red leather yellow leather", Difficulty: Medium, WordCount: 8},
	{ID: 11, Text: "Betty Botter bought some butter but she said the butter's bitter", Difficulty: Medium, WordCount: 11},
	{ID: 12, Text: "I scream you scream we all scream for ice cream", Difficulty: Medium, WordCount: 10},
	{ID: 13, Text: "Fuzzy Wuzzy was a bear Fuzzy Wuzzy had no hair", Difficulty: Medium, WordCount: 10},
	{ID: 14, Text: "Six slippery snails slid slowly seaward", Difficulty: Medium, WordCount: 6},
	{ID: 15, Text: "The sixth sick sheik's sixth sheep's sick", Difficulty: Hard, WordCount: 7},
	{ID: 16, Text: "I saw Susie sitting in a shoeshine shop", Difficulty: Hard, WordCount: 9},
	{ID: 17, Text: "Lesser leather never weathered wetter weather better", Difficulty: Hard, WordCount: 7},
	{ID: 18, Text: "Brisk brave brigadiers brandished broad bright blades", Difficulty: Hard, WordCount: 7},
	{ID: 19, Text: "Pad kid poured curd pulled cod", Difficulty: Insane, WordCount: 6},
	{ID: 20, Text: "The seething sea ceaseth and thus the seething sea sufficeth us", Difficulty: Insane, WordCount: 11},
}
