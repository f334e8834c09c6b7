package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"balancebot/m/v2/app/config"
	"balancebot/m/v2/app/ledger"
	"balancebot/m/v2/app/reports"
	"balancebot/m/v2/app/util"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

var monthsShort = [13]string{"", "Янв", "Фев", "Мар", "Апр", "Май", "Июн", "Июл", "Авг", "Сен", "Окт", "Ноя", "Дек"}

func statisticsStartHandler(ctx context.Context, bot *Bot, message *telego.Message) {
	chatID := util.GetChatID(message)
	chatIDString := util.GetChatIDString(message)

	user, err := ensureAuthenticatedUser(ctx, bot, chatID, chatIDString)
	if err != nil {
		log.WithError(err).Errorf("Statistics guard failed for %s", chatIDString)
		bot.SendMessage(tu.Message(chatID, MessageStatError))
		return
	}
	if user == nil {
		return
	}

	dialog := getDialog(bot.Cache, chatIDString)
	dialog.DisplayYear = time.Now().Year()
	saveDialog(bot.Cache, chatIDString, dialog)

	bot.SendMessage(tu.Message(chatID, MessageChoosePeriod).WithReplyMarkup(periodKeyboard(dialog.DisplayYear)))
}

// periodKeyboard is the < year > navigation row, 4x3 month grid and a cancel
// row. Future months of the current year are inert dots.
func periodKeyboard(displayYear int) *telego.InlineKeyboardMarkup {
	now := time.Now()
	currentYear := now.Year()
	currentMonth := int(now.Month())

	left := "stat_noop"
	if displayYear > config.CONFIG.StatisticsStartYear {
		left = "stat_nav_left"
	}
	right := "stat_noop"
	if displayYear < currentYear {
		right = "stat_nav_right"
	}
	rows := [][]telego.InlineKeyboardButton{
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("<").WithCallbackData(left),
			tu.InlineKeyboardButton(strconv.Itoa(displayYear)).WithCallbackData(fmt.Sprintf("stat_yearrpt_%d", displayYear)),
			tu.InlineKeyboardButton(">").WithCallbackData(right),
		),
	}
	for rowStart := 1; rowStart <= 12; rowStart += 3 {
		row := make([]telego.InlineKeyboardButton, 0, 3)
		for m := rowStart; m < rowStart+3; m++ {
			if displayYear > currentYear || (displayYear == currentYear && m > currentMonth) {
				row = append(row, tu.InlineKeyboardButton("·").WithCallbackData("stat_noop"))
				continue
			}
			row = append(row, tu.InlineKeyboardButton(monthsShort[m]).WithCallbackData(fmt.Sprintf("stat_month_%d", m)))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tu.InlineKeyboardRow(tu.InlineKeyboardButton("Отмена").WithCallbackData("stat_cancel")))
	return &telego.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func handleStatisticsCallback(bot *Bot, callbackQuery *telego.CallbackQuery) {
	ctx := context.Background()
	chat := callbackQuery.Message.GetChat()
	chatID := tu.ID(chat.ID)
	chatIDString := fmt.Sprintf("%d", chat.ID)
	messageID := callbackQuery.Message.GetMessageID()
	data := callbackQuery.Data
	dialog := getDialog(bot.Cache, chatIDString)

	switch {
	case data == "stat_noop":

	case data == "stat_nav_left" || data == "stat_nav_right":
		if dialog.DisplayYear == 0 {
			dialog.DisplayYear = time.Now().Year()
		}
		if data == "stat_nav_left" && dialog.DisplayYear > config.CONFIG.StatisticsStartYear {
			dialog.DisplayYear--
		}
		if data == "stat_nav_right" && dialog.DisplayYear < time.Now().Year() {
			dialog.DisplayYear++
		}
		saveDialog(bot.Cache, chatIDString, dialog)
		bot.EditMessageReplyMarkup(&telego.EditMessageReplyMarkupParams{
			ChatID: chatID, MessageID: messageID, ReplyMarkup: periodKeyboard(dialog.DisplayYear),
		})

	case strings.HasPrefix(data, "stat_yearrpt_"):
		year, err := strconv.Atoi(strings.TrimPrefix(data, "stat_yearrpt_"))
		if err != nil {
			log.Errorf("Bad year callback %q in chat %s", data, chatIDString)
			return
		}
		dialog.StatYear = year
		dialog.StatMonth = 0
		saveDialog(bot.Cache, chatIDString, dialog)
		bot.EditMessageText((&telego.EditMessageTextParams{
			ChatID: chatID, MessageID: messageID, Text: MessageChooseFormat,
		}).WithReplyMarkup(formatChoiceKeyboard()))

	case strings.HasPrefix(data, "stat_month_"):
		month, err := strconv.Atoi(strings.TrimPrefix(data, "stat_month_"))
		if err != nil {
			log.Errorf("Bad month callback %q in chat %s", data, chatIDString)
			return
		}
		if dialog.DisplayYear == 0 {
			dialog.DisplayYear = time.Now().Year()
		}
		dialog.StatYear = dialog.DisplayYear
		dialog.StatMonth = month
		saveDialog(bot.Cache, chatIDString, dialog)
		bot.EditMessageText((&telego.EditMessageTextParams{
			ChatID: chatID, MessageID: messageID, Text: MessageChooseFormat,
		}).WithReplyMarkup(formatChoiceKeyboard()))

	case strings.HasPrefix(data, "stat_fmt_"):
		format := strings.TrimPrefix(data, "stat_fmt_")
		sendStatReport(ctx, bot, chatID, chatIDString, messageID, dialog, format)

	case data == "stat_cancel":
		clearDialog(bot.Cache, chatIDString)
		bot.EditMessageText(&telego.EditMessageTextParams{
			ChatID: chatID, MessageID: messageID, Text: MessageStatCancelled,
		})

	default:
		log.Errorf("Unknown statistics callback: %s", data)
	}
}

func sendStatReport(ctx context.Context, bot *Bot, chatID telego.ChatID, chatIDString string, messageID int, dialog *Dialog, format string) {
	user, err := bot.Store.GetUser(ctx, chatIDString)
	if err != nil {
		log.WithError(err).Errorf("Failed to load user %s for report", chatIDString)
		bot.SendMessage(tu.Message(chatID, MessageStatError))
		return
	}
	if dialog.StatYear == 0 {
		log.Warnf("Report format chosen without a period in chat %s", chatIDString)
		clearDialog(bot.Cache, chatIDString)
		return
	}

	bot.EditMessageText(&telego.EditMessageTextParams{
		ChatID: chatID, MessageID: messageID, Text: MessageStatGenerating,
	})

	request := ledger.Request{Account: user.AccountLogin, Year: dialog.StatYear, Month: dialog.StatMonth}
	report, err := bot.Engine.BuildReport(ctx, request)
	if errors.Is(err, ledger.ErrNoData) {
		bot.EditMessageText(&telego.EditMessageTextParams{
			ChatID: chatID, MessageID: messageID,
			Text: fmt.Sprintf(MessageStatNoData, periodLabel(dialog.StatYear, dialog.StatMonth)),
		})
		bot.Store.AppendLog(ctx, "INFO", "STAT_NO_DATA",
			fmt.Sprintf("Нет данных для %s за %s", user.AccountLogin, periodLabel(dialog.StatYear, dialog.StatMonth)))
		clearDialog(bot.Cache, chatIDString)
		return
	}
	if err != nil {
		log.WithError(err).Errorf("Failed to build report for %s", user.AccountLogin)
		bot.EditMessageText(&telego.EditMessageTextParams{
			ChatID: chatID, MessageID: messageID, Text: MessageStatError,
		})
		bot.Store.AppendLog(ctx, "ERROR", "STAT_DATA_LOAD",
			fmt.Sprintf("Ошибка загрузки данных для %s за %s: %v", user.AccountLogin, periodLabel(dialog.StatYear, dialog.StatMonth), err))
		clearDialog(bot.Cache, chatIDString)
		return
	}

	var fileData []byte
	var fileName string
	switch format {
	case "excel":
		fileData, err = reports.GenerateExcel(report)
		fileName = reports.FileName(report, "xlsx")
	case "pdf":
		fileData, err = reports.GeneratePDF(report)
		fileName = reports.FileName(report, "pdf")
	default:
		log.Errorf("Unknown report format %q in chat %s", format, chatIDString)
		clearDialog(bot.Cache, chatIDString)
		return
	}
	if err != nil {
		log.WithError(err).Errorf("Failed to render %s report for %s", format, user.AccountLogin)
		bot.EditMessageText(&telego.EditMessageTextParams{
			ChatID: chatID, MessageID: messageID, Text: MessageStatError,
		})
		bot.Store.AppendLog(ctx, "ERROR", "STAT_GENERATE",
			fmt.Sprintf("Ошибка формирования отчёта для %s за %s: %v", user.AccountLogin, report.PeriodLabel(), err))
		clearDialog(bot.Cache, chatIDString)
		return
	}

	bot.DeleteMessage(&telego.DeleteMessageParams{ChatID: chatID, MessageID: messageID})
	_, err = bot.SendDocument(tu.Document(
		chatID,
		tu.File(tu.NameReader(bytes.NewReader(fileData), fileName)),
	).WithCaption("Акт сверки расчётов: " + report.PeriodLabel()))
	if err != nil {
		log.WithError(err).Errorf("Failed to send report document to %s", chatIDString)
		bot.SendMessage(tu.Message(chatID, MessageStatError))
		clearDialog(bot.Cache, chatIDString)
		return
	}

	config.CONFIG.DataDogClient.Incr("telegram.report_sent", []string{"format:" + format}, 1)
	bot.Store.AppendLog(ctx, "SUCCESS", "STAT_REPORT",
		fmt.Sprintf("Отчёт %s отправлен пользователю %s", fileName, chatIDString))
	clearDialog(bot.Cache, chatIDString)
}

func periodLabel(year, month int) string {
	if month == 0 {
		return strconv.Itoa(year)
	}
	return fmt.Sprintf("%s %d", monthsShort[month], year)
}
