package locale

import (
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	MergeFailed        = "merge_failed"
	CompressionFailed  = "compression_failed"
	DeliveryFailed     = "delivery_failed"
	Delivered          = "delivered"
	LargeFileWarning   = "large_file_warning"
	StorageWarning     = "storage_warning"
	RunError           = "run_error"
	TestNotification   = "test_notification"
	InsufficientFiles  = "insufficient_files"
	PersonAlert        = "person_alert"
	AlertVideo         = "alert_video"
	AlertVideoTime     = "alert_video_time"
	AlertPersonCount   = "alert_person_count"
	AlertPersonScore   = "alert_person_score"
	PendingScreenshots = "pending_screenshots"
	VideoCaption       = "video_caption"
)

var supported = []language.Tag{language.English, language.Russian}

var messages = map[language.Tag]map[string]string{
	language.English: {
		MergeFailed:        "❌ Video merge failed: %s",
		CompressionFailed:  "📦 Compression failed. Files will not be sent: %s",
		DeliveryFailed:     "❌ Failed to send to Telegram: %s",
		Delivered:          "✅ File sent to Telegram: %s",
		LargeFileWarning:   "📦 Large file detected: %.1f MB",
		StorageWarning:     "⚠️ Storage space low: %.1f%% remaining",
		RunError:           "💥 Watcher run failed: %s",
		TestNotification:   "🔔 Watcher test notification",
		InsufficientFiles:  "⏸ Insufficient files to merge. Need at least 2.",
		PersonAlert:        "🚨 Person Detection Alert!",
		AlertVideo:         "🎞 Video: %s",
		AlertVideoTime:     "⏰ Video time: %s",
		AlertPersonCount:   "👥 Persons detected: %d",
		AlertPersonScore:   "Person %d: %.0f%% confidence",
		PendingScreenshots: "📸 %d pending detection screenshots",
		VideoCaption:       "📹 Recording %s (%d segments)",
	},
	language.Russian: {
		MergeFailed:        "❌ Не удалось объединить видео: %s",
		CompressionFailed:  "📦 Сжатие не удалось. Файлы не будут отправлены: %s",
		DeliveryFailed:     "❌ Не удалось отправить в Telegram: %s",
		Delivered:          "✅ Файл отправлен в Telegram: %s",
		LargeFileWarning:   "📦 Обнаружен большой файл: %.1f МБ",
		StorageWarning:     "⚠️ Мало места на диске: %.1f%% свободно",
		RunError:           "💥 Ошибка запуска Watcher: %s",
		TestNotification:   "🔔 Тестовое уведомление Watcher",
		InsufficientFiles:  "⏸ Недостаточно файлов для объединения. Нужны как минимум 2.",
		PersonAlert:        "🚨 Обнаружен человек!",
		AlertVideo:         "🎞 Видео: %s",
		AlertVideoTime:     "⏰ Время в видео: %s",
		AlertPersonCount:   "👥 Обнаружено людей: %d",
		AlertPersonScore:   "Человек %d: уверенность %.0f%%",
		PendingScreenshots: "📸 Неотправленных снимков: %d",
		VideoCaption:       "📹 Запись %s (сегментов: %d)",
	},
}

var builtCatalog = buildCatalog()

func buildCatalog() *catalog.Builder {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, entries := range messages {
		for key, msg := range entries {
			// Entries are static; SetString only fails on malformed tags.
			_ = builder.SetString(tag, key, msg)
		}
	}
	return builder
}

// Translator renders message keys in one language.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a Translator for lang. "auto" or an empty value consults the
// LC_ALL, LC_MESSAGES, and LANG environment variables. Unsupported languages
// fall back to English.
func New(lang string) *Translator {
	tag := Resolve(lang)
	return &Translator{tag: tag, printer: message.NewPrinter(tag, message.Catalog(builtCatalog))}
}

// Resolve maps a configured language name to a supported tag.
func Resolve(lang string) language.Tag {
	lang = strings.TrimSpace(strings.ToLower(lang))
	if lang == "" || lang == "auto" {
		lang = systemLanguage()
	}
	parsed, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	matcher := language.NewMatcher(supported)
	_, index, confidence := matcher.Match(parsed)
	if confidence == language.No {
		return language.English
	}
	return supported[index]
}

func systemLanguage() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		value := os.Getenv(key)
		if value == "" {
			continue
		}
		value, _, _ = strings.Cut(value, ".")
		return strings.ReplaceAll(value, "_", "-")
	}
	return "en"
}

// Language returns the resolved language tag.
func (t *Translator) Language() language.Tag {
	if t == nil {
		return language.English
	}
	return t.tag
}

// Translate formats the message registered under key. Unknown keys are
// returned verbatim.
func (t *Translator) Translate(key string, args ...any) string {
	if t == nil {
		t = New("en")
	}
	return t.printer.Sprintf(key, args...)
}
