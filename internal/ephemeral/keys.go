package ephemeral

import "fmt"

// Key namespace carried directly from engine.py's key scheme (see
// GameStateManager.__init__), the clearest grounding available for
// "keys scoped by game id prefix" (spec.md section 4.1).

func StateKey(gameID string) string            { return fmt.Sprintf("game:%s:state", gameID) }
func BuzzerKey(gameID string) string            { return fmt.Sprintf("game:%s:buzzer", gameID) }
func BuzzerOrderKey(gameID string) string       { return BuzzerKey(gameID) + ":order" }
func ScoresKey(gameID string) string            { return fmt.Sprintf("game:%s:scores", gameID) }
func CurrentPlayerKey(gameID string) string     { return fmt.Sprintf("game:%s:current_player", gameID) }
func DDStateKey(gameID string) string           { return fmt.Sprintf("game:%s:dd_state", gameID) }
func FJStateKey(gameID string) string           { return fmt.Sprintf("game:%s:fj_state", gameID) }
func FJWagersKey(gameID string) string          { return FJStateKey(gameID) + ":wagers" }
func FJAnswersKey(gameID string) string         { return FJStateKey(gameID) + ":answers" }
func FJJudgedKey(gameID string) string          { return FJStateKey(gameID) + ":judged" }
func CooldownKey(gameID string) string          { return fmt.Sprintf("game:%s:buzz_cooldowns", gameID) }
func AttemptedPlayersKey(gameID string) string  { return fmt.Sprintf("game:%s:attempted_players", gameID) }
func RevealedCluesKey(gameID string) string     { return fmt.Sprintf("game:%s:revealed_clues", gameID) }
func DailyDoublesKey(gameID string) string      { return fmt.Sprintf("game:%s:daily_doubles", gameID) }

// AllKeys returns every key belonging to a game, for cleanup on
// completion/abandonment (mirrors engine.py's GameStateManager.cleanup).
func AllKeys(gameID string) []string {
	return []string{
		StateKey(gameID),
		BuzzerKey(gameID),
		BuzzerOrderKey(gameID),
		ScoresKey(gameID),
		CurrentPlayerKey(gameID),
		DDStateKey(gameID),
		FJStateKey(gameID),
		FJWagersKey(gameID),
		FJAnswersKey(gameID),
		FJJudgedKey(gameID),
		CooldownKey(gameID),
		AttemptedPlayersKey(gameID),
		RevealedCluesKey(gameID),
		DailyDoublesKey(gameID),
	}
}
