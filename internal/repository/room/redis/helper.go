package redis

import (
	"context"
	"reflect"

	"github.com/redis/go-redis/v9"
)

// addWithIncrement appends value to the sorted set at key with a score one above the current maximum.
func (r repo) addWithIncrement(ctx context.Context, c redis.Scripter, key string, value interface{}) {
	c.EvalSha(ctx, r.maxScoreScript, []string{key}, value)
}

func (r repo) hSetStruct(ctx context.Context, c redis.Cmdable, key string, value interface{}) {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	fields := make(map[string]interface{})
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		tag := t.Field(i).Tag.Get("redis")
		if tag == "" {
			tag = t.Field(i).Name
		}

		fields[tag] = v.Field(i).Interface()
	}

	c.HSet(ctx, key, fields)
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}

func (r repo) getParticipantKey(participantId string) string {
	return "participant:" + participantId
}

func (r repo) getParticipantListKey(roomId string) string {
	return "room:" + roomId + ":participants"
}

func (r repo) getRulerKey(roomId string) string {
	return "room:" + roomId + ":ruler"
}

func (r repo) getMediaKey(roomId string) string {
	return "room:" + roomId + ":media"
}
