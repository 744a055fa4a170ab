package server

import (
	"encoding/xml"
	"path"
	"strings"

	"sonicgate/core/entity"
	"sonicgate/model"
)

// child is one track as rendered in directory and playlist listings.
type child struct {
	ID       entity.SongID     `xml:"id,attr" json:"id"`
	IsDir    bool              `xml:"isDir,attr" json:"isDir"`
	Title    string            `xml:"title,attr" json:"title"`
	Album    string            `xml:"album,attr,omitempty" json:"album,omitempty"`
	Artist   string            `xml:"artist,attr,omitempty" json:"artist,omitempty"`
	Track    int               `xml:"track,attr,omitempty" json:"track,omitempty"`
	Disc     int               `xml:"discNumber,attr,omitempty" json:"discNumber,omitempty"`
	Year     int               `xml:"year,attr,omitempty" json:"year,omitempty"`
	Genre    string            `xml:"genre,attr,omitempty" json:"genre,omitempty"`
	CoverArt entity.CoverArtID `xml:"coverArt,attr" json:"coverArt"`
	Duration int               `xml:"duration,attr" json:"duration"`
	Path     string            `xml:"path,attr" json:"path"`
	Suffix   string            `xml:"suffix,attr,omitempty" json:"suffix,omitempty"`
	ArtistID entity.ArtistID   `xml:"artistId,attr" json:"artistId"`
	AlbumID  *entity.AlbumID   `xml:"albumId,attr,omitempty" json:"albumId,omitempty"`
}

func childFromSong(song model.Song) child {
	title := song.Title
	if title == "" {
		title = path.Base(song.Path)
	}

	c := child{
		ID:       entity.SongID{Path: song.Path},
		Title:    title,
		Album:    song.Album,
		Artist:   song.Artist,
		Track:    song.Track,
		Disc:     song.Disc,
		Year:     song.Year,
		Genre:    song.Genre,
		CoverArt: entity.SongCoverArtID(song.Path),
		Duration: song.Duration,
		Path:     song.Path,
		Suffix:   strings.TrimPrefix(path.Ext(song.Path), "."),
		ArtistID: entity.ArtistID{Name: song.Artist},
	}
	if song.Album != "" {
		c.AlbumID = &entity.AlbumID{Name: song.Album, Artist: song.Artist}
	}
	return c
}

type license struct {
	okReply
	XMLName xml.Name `xml:"license" json:"-"`
	Valid   bool     `xml:"valid,attr" json:"valid"`
}

func (license) replyName() string { return "license" }

type musicFolder struct {
	ID   string `xml:"id,attr" json:"id"`
	Name string `xml:"name,attr" json:"name"`
}

type musicFolders struct {
	okReply
	XMLName xml.Name      `xml:"musicFolders" json:"-"`
	Folders []musicFolder `xml:"musicFolder" json:"musicFolder"`
}

func (musicFolders) replyName() string { return "musicFolders" }

// playlistInfo is the summary form of a stored playlist.
type playlistInfo struct {
	ID        entity.PlaylistID `xml:"id,attr" json:"id"`
	Name      string            `xml:"name,attr" json:"name"`
	Owner     string            `xml:"owner,attr" json:"owner"`
	Public    bool              `xml:"public,attr" json:"public"`
	SongCount int               `xml:"songCount,attr" json:"songCount"`
	Duration  int               `xml:"duration,attr" json:"duration"`
	CoverArt  entity.CoverArtID `xml:"coverArt,attr" json:"coverArt"`
	Changed   string            `xml:"changed,attr,omitempty" json:"changed,omitempty"`
}

type playlists struct {
	okReply
	XMLName   xml.Name       `xml:"playlists" json:"-"`
	Playlists []playlistInfo `xml:"playlist" json:"playlist"`
}

func (playlists) replyName() string { return "playlists" }

type playlistWithSongs struct {
	okReply
	XMLName xml.Name `xml:"playlist" json:"-"`
	playlistInfo
	Entries []child `xml:"entry" json:"entry"`
}

func (playlistWithSongs) replyName() string { return "playlist" }

type user struct {
	okReply
	XMLName           xml.Name `xml:"user" json:"-"`
	Username          string   `xml:"username,attr" json:"username"`
	ScrobblingEnabled bool     `xml:"scrobblingEnabled,attr" json:"scrobblingEnabled"`
	AdminRole         bool     `xml:"adminRole,attr" json:"adminRole"`
	SettingsRole      bool     `xml:"settingsRole,attr" json:"settingsRole"`
	DownloadRole      bool     `xml:"downloadRole,attr" json:"downloadRole"`
	UploadRole        bool     `xml:"uploadRole,attr" json:"uploadRole"`
	PlaylistRole      bool     `xml:"playlistRole,attr" json:"playlistRole"`
	CoverArtRole      bool     `xml:"coverArtRole,attr" json:"coverArtRole"`
	CommentRole       bool     `xml:"commentRole,attr" json:"commentRole"`
	PodcastRole       bool     `xml:"podcastRole,attr" json:"podcastRole"`
	StreamRole        bool     `xml:"streamRole,attr" json:"streamRole"`
	JukeboxRole       bool     `xml:"jukeboxRole,attr" json:"jukeboxRole"`
	ShareRole         bool     `xml:"shareRole,attr" json:"shareRole"`
	VideoConversion   bool     `xml:"videoConversionRole,attr" json:"videoConversionRole"`
	Folders           []string `xml:"folder" json:"folder"`
}

func (user) replyName() string { return "user" }

type scanStatus struct {
	okReply
	XMLName  xml.Name `xml:"scanStatus" json:"-"`
	Scanning bool     `xml:"scanning,attr" json:"scanning"`
	Count    int64    `xml:"count,attr" json:"count"`
}

func (scanStatus) replyName() string { return "scanStatus" }
