// Package vibematch embeds the vibematch matching engine in a Go program.
//
// It turns dating-profile attributes into embedding vectors and ranks
// candidate users for a target by least exposure first, then by cosine
// similarity with an additive opposite-gender boost.
//
//	client, _ := vibematch.New(ctx,
//	    vibematch.WithValkey("localhost:6379", ""),
//	    vibematch.WithOpenAI(vibematch.OpenAIConfig{
//	        BaseURL: "https://api.studio.nebius.com/v1/",
//	        APIKey:  os.Getenv("EMBEDDING_API_KEY"),
//	        Model:   "sentence-transformers/all-MiniLM-L6-v2",
//	    }),
//	)
//	defer client.Close()
//
//	vec, _ := client.Vectorize(ctx, vibematch.Profile{UserID: "u1", Interests: []string{"chess"}})
//	recs, _ := client.Recommend(ctx, vibematch.RecommendRequest{
//	    TargetID:   "u1",
//	    Candidates: candidates,
//	    Limit:      10,
//	})
//
// Without a database address the client is stateless: exposure history must
// be supplied per request and embeddings are not cached.
package vibematch
