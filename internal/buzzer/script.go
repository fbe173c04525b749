package buzzer

import (
	"time"

	"github.com/briarpatch/jeopardy-coordinator/internal/ephemeral"
)

// handleBuzzLua is carried line-for-line from the Django/Redis original
// this spec was distilled from (games/engine.py, GameStateManager.handle_buzz),
// translated to the reply shape redigo expects: a four-element array
// {accepted(0/1), position, winner, cooldown_remaining_us}. Rejection
// codes and ordering exactly match spec.md section 4.2's numbered list.
const handleBuzzLua = `
local buzzer_key = KEYS[1]
local cooldown_key = KEYS[2]
local attempted_key = KEYS[3]
local player = ARGV[1]
local timestamp = ARGV[2]
local current_time = tonumber(ARGV[3])
local cooldown_duration = tonumber(ARGV[4])
local client_unlock_token = ARGV[5]

local already_attempted = redis.call('SISMEMBER', attempted_key, player)
if already_attempted == 1 then
    return {0, -3, -1, 0}
end

local last_buzz_time = redis.call('HGET', cooldown_key, player)
if last_buzz_time then
    local elapsed = current_time - tonumber(last_buzz_time)
    if elapsed < cooldown_duration then
        local remaining = cooldown_duration - elapsed
        return {0, -2, -1, remaining}
    end
end

local locked = redis.call('HGET', buzzer_key, 'locked')
if locked == 'true' then
    redis.call('HSET', cooldown_key, player, current_time)
    redis.call('EXPIRE', cooldown_key, 86400)
    return {0, -1, -1, cooldown_duration}
end

local server_unlock_token = redis.call('HGET', buzzer_key, 'unlock_token')
if server_unlock_token then
    if not client_unlock_token or client_unlock_token == '' or client_unlock_token == 'nil' then
        redis.call('HSET', cooldown_key, player, current_time)
        redis.call('EXPIRE', cooldown_key, 86400)
        return {0, -1, -1, cooldown_duration}
    end
    if client_unlock_token ~= server_unlock_token then
        redis.call('HSET', cooldown_key, player, current_time)
        redis.call('EXPIRE', cooldown_key, 86400)
        return {0, -1, -1, cooldown_duration}
    end
end

local already_buzzed = redis.call('HEXISTS', buzzer_key, 'player:' .. player)
if already_buzzed == 1 then
    return {0, -1, -1, 0}
end

local count = redis.call('HINCRBY', buzzer_key, 'count', 1)
redis.call('HSET', buzzer_key, 'player:' .. player, timestamp)
redis.call('RPUSH', buzzer_key .. ':order', player)
redis.call('HSET', cooldown_key, player, current_time)
redis.call('EXPIRE', cooldown_key, 86400)

if count == 1 then
    redis.call('HSET', buzzer_key, 'locked', '1')
    redis.call('HSET', buzzer_key, 'winner', player)
    redis.call('HSET', buzzer_key, 'winner_timestamp', timestamp)
    return {1, count, tonumber(player), 0}
end

local winner = redis.call('HGET', buzzer_key, 'winner')
return {1, count, tonumber(winner), 0}
`

// handleBuzzFallback implements the identical decision tree in Go for
// memstore, used locally and by tests. It must stay in lockstep with
// handleBuzzLua above. All four reply slots are int64: Redis truncates
// any Lua number returned in a table reply to an integer on the wire,
// so the fallback uses integer microsecond arithmetic throughout rather
// than float64 to match that truncation exactly.
func handleBuzzFallback(ops ephemeral.KeyOps, keys []string, args []string) []interface{} {
	buzzerKey, cooldownKey, attemptedKey := keys[0], keys[1], keys[2]
	player := args[0]
	timestamp := args[1]
	currentTime := parseInt64(args[2])
	cooldownDuration := parseInt64(args[3])
	clientUnlockToken := args[4]

	if ops.SIsMember(attemptedKey, player) {
		return []interface{}{int64(0), int64(-3), int64(-1), int64(0)}
	}

	if last, ok := ops.HGet(cooldownKey, player); ok {
		elapsed := currentTime - parseInt64(last)
		if elapsed < cooldownDuration {
			return []interface{}{int64(0), int64(-2), int64(-1), cooldownDuration - elapsed}
		}
	}

	if locked, ok := ops.HGet(buzzerKey, "locked"); ok && locked == "true" {
		ops.HSet(cooldownKey, player, itoa64(currentTime))
		ops.Expire(cooldownKey, 24*time.Hour)
		return []interface{}{int64(0), int64(-1), int64(-1), cooldownDuration}
	}

	serverToken, hasToken := ops.HGet(buzzerKey, "unlock_token")
	if hasToken {
		if clientUnlockToken == "" || clientUnlockToken == "nil" {
			ops.HSet(cooldownKey, player, itoa64(currentTime))
			ops.Expire(cooldownKey, 24*time.Hour)
			return []interface{}{int64(0), int64(-1), int64(-1), cooldownDuration}
		}
		if clientUnlockToken != serverToken {
			ops.HSet(cooldownKey, player, itoa64(currentTime))
			ops.Expire(cooldownKey, 24*time.Hour)
			return []interface{}{int64(0), int64(-1), int64(-1), cooldownDuration}
		}
	}

	if _, ok := ops.HGet(buzzerKey, "player:"+player); ok {
		return []interface{}{int64(0), int64(-1), int64(-1), int64(0)}
	}

	count := ops.HIncrBy(buzzerKey, "count", 1)
	ops.HSet(buzzerKey, "player:"+player, timestamp)
	ops.RPush(buzzerKey+":order", player)
	ops.HSet(cooldownKey, player, itoa64(currentTime))
	ops.Expire(cooldownKey, 24*time.Hour)

	if count == 1 {
		ops.HSet(buzzerKey, "locked", "1")
		ops.HSet(buzzerKey, "winner", player)
		ops.HSet(buzzerKey, "winner_timestamp", timestamp)
		return []interface{}{int64(1), int64(count), parseInt64(player), int64(0)}
	}

	winner, _ := ops.HGet(buzzerKey, "winner")
	return []interface{}{int64(1), int64(count), parseInt64(winner), int64(0)}
}

// handleBuzzScript is the single shared Script instance; RedisStore
// compiles Source once (cached by pointer identity) and memstore calls
// Fallback directly.
var handleBuzzScript = &ephemeral.Script{
	NumKeys:  3,
	Source:   handleBuzzLua,
	Fallback: handleBuzzFallback,
}
