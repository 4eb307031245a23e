// Package storage persists the bot's users and quiz questions in SQLite.
//
// It exposes two repositories:
//   - UserRepo: opt-in recipients, language preferences, language grouping
//     for segmented broadcasts
//   - QuestionRepo: quiz questions plus the in-process "already served"
//     rotation used by the daily question job
package storage
