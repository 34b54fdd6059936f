package store

import "fmt"

// Key layout, namespaced as trivia:<scope>:<region>[:<id>]:
//
//	trivia:<scope>:registrations        hash  reg_id -> registration JSON
//	trivia:<scope>:games:active         hash  game_id -> game JSON
//	trivia:<scope>:game:<id>:submissions hash user_id -> submission JSON
//	trivia:<scope>:games:history        zset  game_id scored by close time
//	trivia:<scope>:game:<id>:history    string history JSON (retention TTL)
//	trivia:<scope>:seeds:used           set   used question seeds
//	trivia:scopes                       set   known scope ids
//	lock:<resource>                     string lock owner token (TTL)

// ScopeID normalizes an owning-scope id for key construction. An empty guild
// id maps to the shared "global" scope.
func ScopeID(guildID string) string {
	if guildID == "" {
		return "global"
	}
	return guildID
}

func registrationsKey(scope string) string {
	return fmt.Sprintf("trivia:%s:registrations", scope)
}

func activeGamesKey(scope string) string {
	return fmt.Sprintf("trivia:%s:games:active", scope)
}

func submissionsKey(scope, gameID string) string {
	return fmt.Sprintf("trivia:%s:game:%s:submissions", scope, gameID)
}

func historyIndexKey(scope string) string {
	return fmt.Sprintf("trivia:%s:games:history", scope)
}

func historyKey(scope, gameID string) string {
	return fmt.Sprintf("trivia:%s:game:%s:history", scope, gameID)
}

func usedSeedsKey(scope string) string {
	return fmt.Sprintf("trivia:%s:seeds:used", scope)
}

const scopesKey = "trivia:scopes"

func lockKey(resource string) string {
	return "lock:" + resource
}
