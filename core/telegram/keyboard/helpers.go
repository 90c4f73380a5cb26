// Package keyboard builds reply keyboards.
package keyboard

import tele "gopkg.in/telebot.v4"

// Rows builds a resized reply keyboard with one keyboard row per labels slice.
func Rows(labels ...[]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	rows := make([]tele.Row, len(labels))
	for i, line := range labels {
		btns := make([]tele.Btn, len(line))
		for j, label := range line {
			btns[j] = markup.Text(label)
		}
		rows[i] = markup.Row(btns...)
	}
	markup.Reply(rows...)
	return markup
}

// OneTimeMenu stacks labels vertically and hides the keyboard after a tap.
func OneTimeMenu(labels ...string) *tele.ReplyMarkup {
	stacked := make([][]string, len(labels))
	for i, l := range labels {
		stacked[i] = []string{l}
	}
	markup := Rows(stacked...)
	markup.OneTimeKeyboard = true
	return markup
}
